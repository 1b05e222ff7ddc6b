package ports

import (
	"context"
	"time"

	"github.com/obalifehub/lifehub/internal/core/domain"
)

// ActivityView is a catalog activity with the caller's progress on it.
type ActivityView struct {
	Activity    domain.Activity
	Completed   bool
	Progress    int
	CompletedAt *time.Time
}

// CatalogService lists what can be earned and spent.
type CatalogService interface {
	Activities(ctx context.Context, userID string) ([]ActivityView, error)
	Rewards(ctx context.Context) ([]domain.Reward, error)
	Claims(ctx context.Context, userID string) ([]domain.UserReward, error)
}
