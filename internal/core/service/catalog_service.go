package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/obalifehub/lifehub/internal/core/domain"
	"github.com/obalifehub/lifehub/internal/core/ports"
)

type catalogService struct {
	repo ports.CatalogRepository
}

// NewCatalogService returns a CatalogService implementation.
func NewCatalogService(repo ports.CatalogRepository) ports.CatalogService {
	return &catalogService{repo: repo}
}

// Activities returns active activities, easiest first, with the user's
// progress on each.
func (s *catalogService) Activities(ctx context.Context, userID string) ([]ports.ActivityView, error) {
	activities, err := s.repo.ActiveActivities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	progress, err := s.repo.UserActivities(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}

	byActivity := make(map[string]domain.UserActivity, len(progress))
	for _, ua := range progress {
		byActivity[ua.ActivityID] = ua
	}

	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Difficulty.Rank() < activities[j].Difficulty.Rank()
	})

	views := make([]ports.ActivityView, 0, len(activities))
	for _, a := range activities {
		v := ports.ActivityView{Activity: a}
		if ua, ok := byActivity[a.ID]; ok {
			v.Completed = ua.Completed
			v.Progress = ua.Progress
			v.CompletedAt = ua.CompletedAt
		}
		views = append(views, v)
	}
	return views, nil
}

// Rewards returns active rewards, cheapest first.
func (s *catalogService) Rewards(ctx context.Context) ([]domain.Reward, error) {
	rewards, err := s.repo.ActiveRewards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	sort.SliceStable(rewards, func(i, j int) bool {
		return rewards[i].CoinCost < rewards[j].CoinCost
	})
	return rewards, nil
}

// Claims returns the user's claimed rewards, newest first.
func (s *catalogService) Claims(ctx context.Context, userID string) ([]domain.UserReward, error) {
	claims, err := s.repo.UserRewards(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	sort.SliceStable(claims, func(i, j int) bool {
		return claims[i].ClaimedAt.After(claims[j].ClaimedAt)
	})
	return claims, nil
}
