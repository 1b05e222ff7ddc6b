package ports

import (
	"context"
	"time"

	"github.com/obalifehub/lifehub/internal/core/domain"
)

// EarnEntry describes an activity completion to be applied atomically.
type EarnEntry struct {
	UserID        string
	Activity      *domain.Activity
	TransactionID string
	Description   string
	At            time.Time
}

// SpendEntry describes a reward redemption to be applied atomically.
type SpendEntry struct {
	UserID        string
	Reward        *domain.Reward
	TransactionID string
	ClaimID       string
	Description   string
	At            time.Time
}

// LedgerRepository applies balance-changing operations. Each Apply call is a
// single store transaction: either every write lands or none does.
type LedgerRepository interface {
	// ApplyEarn upserts the completion record, appends a positive transaction
	// and credits balance and lifetime total. It returns
	// domain.ErrAlreadyCompleted without writing when the activity was
	// already completed by the user.
	ApplyEarn(ctx context.Context, e EarnEntry) (*domain.Profile, error)

	// ApplySpend debits the balance only if it covers the cost, appends a
	// negative transaction, records the claim and decrements stock when the
	// reward has one.
	ApplySpend(ctx context.Context, e SpendEntry) (*domain.Profile, error)

	// Totals sums the user's transaction log.
	Totals(ctx context.Context, userID string) (domain.LedgerTotals, error)

	// ResetCounters overwrites balance, lifetime total and level.
	ResetCounters(ctx context.Context, userID string, balance, totalEarned int64, level domain.Level) (*domain.Profile, error)

	// Recent returns the newest transactions first.
	Recent(ctx context.Context, userID string, limit int) ([]domain.CoinTransaction, error)
}
