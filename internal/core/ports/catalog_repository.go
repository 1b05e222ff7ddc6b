package ports

import (
	"context"

	"github.com/obalifehub/lifehub/internal/core/domain"
)

// CatalogRepository reads activities, rewards and per-user progress.
type CatalogRepository interface {
	FindActivity(ctx context.Context, id string) (*domain.Activity, error)
	FindReward(ctx context.Context, id string) (*domain.Reward, error)
	ActiveActivities(ctx context.Context) ([]domain.Activity, error)
	ActiveRewards(ctx context.Context) ([]domain.Reward, error)
	// FindUserActivity returns nil, nil when the user never started the activity.
	FindUserActivity(ctx context.Context, userID, activityID string) (*domain.UserActivity, error)
	UserActivities(ctx context.Context, userID string) ([]domain.UserActivity, error)
	UserRewards(ctx context.Context, userID string) ([]domain.UserReward, error)
}
