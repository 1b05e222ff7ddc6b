package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/obalifehub/lifehub/internal/core/domain"
)

const (
	activityColumns     = `id, title, description, category, difficulty, coin_reward, icon, active, created_at`
	rewardColumns       = `id, title, description, coin_cost, icon, category, active, stock, created_at`
	userActivityColumns = `id, user_id, activity_id, completed, progress, completed_at, created_at`
	userRewardColumns   = `id, user_id, reward_id, claimed_at, used, used_at`
)

type CatalogRepository struct {
	store *Store
}

func NewCatalogRepository(store *Store) *CatalogRepository {
	return &CatalogRepository{store: store}
}

func (r *CatalogRepository) FindActivity(ctx context.Context, id string) (*domain.Activity, error) {
	row := r.store.pool.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1;`, id)
	a, err := scanActivity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrActivityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find activity: %w", translate(err))
	}
	return &a, nil
}

func (r *CatalogRepository) FindReward(ctx context.Context, id string) (*domain.Reward, error) {
	row := r.store.pool.QueryRow(ctx, `SELECT `+rewardColumns+` FROM rewards WHERE id = $1;`, id)
	rw, err := scanReward(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRewardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find reward: %w", translate(err))
	}
	return &rw, nil
}

func (r *CatalogRepository) ActiveActivities(ctx context.Context) ([]domain.Activity, error) {
	return queryAll(ctx, r.store, `SELECT `+activityColumns+` FROM activities WHERE active;`, scanActivity)
}

func (r *CatalogRepository) ActiveRewards(ctx context.Context) ([]domain.Reward, error) {
	return queryAll(ctx, r.store, `SELECT `+rewardColumns+` FROM rewards WHERE active ORDER BY coin_cost;`, scanReward)
}

// FindUserActivity returns nil, nil when the user never started the activity.
func (r *CatalogRepository) FindUserActivity(ctx context.Context, userID, activityID string) (*domain.UserActivity, error) {
	const query = `SELECT ` + userActivityColumns + ` FROM user_activities WHERE user_id = $1 AND activity_id = $2;`
	ua, err := scanUserActivity(r.store.pool.QueryRow(ctx, query, userID, activityID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user activity: %w", translate(err))
	}
	return &ua, nil
}

func (r *CatalogRepository) UserActivities(ctx context.Context, userID string) ([]domain.UserActivity, error) {
	return queryAll(ctx, r.store, `SELECT `+userActivityColumns+` FROM user_activities WHERE user_id = $1;`, scanUserActivity, userID)
}

func (r *CatalogRepository) UserRewards(ctx context.Context, userID string) ([]domain.UserReward, error) {
	return queryAll(ctx, r.store, `SELECT `+userRewardColumns+` FROM user_rewards WHERE user_id = $1 ORDER BY claimed_at DESC;`, scanUserReward, userID)
}

func queryAll[T any](ctx context.Context, s *Store, query string, scan func(pgx.Row) (T, error), args ...any) ([]T, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", translate(err))
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query catalog: %w", translate(err))
	}
	return out, nil
}

func scanActivity(row pgx.Row) (domain.Activity, error) {
	var (
		a                    domain.Activity
		category, difficulty string
	)
	err := row.Scan(&a.ID, &a.Title, &a.Description, &category, &difficulty, &a.CoinReward, &a.Icon, &a.Active, &a.CreatedAt)
	a.Category = domain.ActivityCategory(category)
	a.Difficulty = domain.Difficulty(difficulty)
	return a, err
}

func scanReward(row pgx.Row) (domain.Reward, error) {
	var (
		rw       domain.Reward
		category string
	)
	err := row.Scan(&rw.ID, &rw.Title, &rw.Description, &rw.CoinCost, &rw.Icon, &category, &rw.Active, &rw.Stock, &rw.CreatedAt)
	rw.Category = domain.RewardCategory(category)
	return rw, err
}

func scanUserActivity(row pgx.Row) (domain.UserActivity, error) {
	var ua domain.UserActivity
	err := row.Scan(&ua.ID, &ua.UserID, &ua.ActivityID, &ua.Completed, &ua.Progress, &ua.CompletedAt, &ua.CreatedAt)
	return ua, err
}

func scanUserReward(row pgx.Row) (domain.UserReward, error) {
	var ur domain.UserReward
	err := row.Scan(&ur.ID, &ur.UserID, &ur.RewardID, &ur.ClaimedAt, &ur.Used, &ur.UsedAt)
	return ur, err
}
