package ports

import (
	"context"

	"github.com/obalifehub/lifehub/internal/core/domain"
)

// EarnActivityInput identifies an activity completion request.
type EarnActivityInput struct {
	UserID     string
	ActivityID string
	// IdempotencyKey is optional; a repeated key replays instead of writing.
	IdempotencyKey string
}

// RedeemRewardInput identifies a reward redemption request.
type RedeemRewardInput struct {
	UserID         string
	RewardID       string
	IdempotencyKey string
}

// LedgerResult is returned by ledger operations.
type LedgerResult struct {
	Profile *domain.Profile
	Amount  int64
	// AlreadyCompleted is true when the activity had been completed before
	// and no coins were awarded.
	AlreadyCompleted bool
	// Replayed is true when the idempotency key matched an earlier request.
	Replayed bool
}

// LedgerService applies coin balance changes.
type LedgerService interface {
	EarnActivity(ctx context.Context, in EarnActivityInput) (*LedgerResult, error)
	RedeemReward(ctx context.Context, in RedeemRewardInput) (*LedgerResult, error)
	Reconcile(ctx context.Context, userID string) (*domain.Profile, error)
	History(ctx context.Context, userID string, limit int) ([]domain.CoinTransaction, error)
}
