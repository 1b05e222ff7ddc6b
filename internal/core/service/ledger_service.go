package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/obalifehub/lifehub/internal/core/domain"
	"github.com/obalifehub/lifehub/internal/core/ports"
	"github.com/obalifehub/lifehub/internal/pkg/metrics"
)

const (
	opEarnActivity = "earn_activity"
	opRedeemReward = "redeem_reward"
	opReconcile    = "reconcile"

	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
	defaultLockTTL      = 10 * time.Second
)

// UserLocker serialises ledger operations per user. Acquire returns
// domain.ErrLedgerBusy when another operation holds the lock.
type UserLocker interface {
	Acquire(ctx context.Context, userID string, ttl time.Duration) (release func(context.Context) error, err error)
}

// IdempotencyStore remembers client-supplied request keys (Redis).
type IdempotencyStore interface {
	IsDuplicate(ctx context.Context, userID, op, key string) (bool, error)
	Mark(ctx context.Context, userID, op, key string) error
}

type ledgerService struct {
	ledger   ports.LedgerRepository
	catalog  ports.CatalogRepository
	profiles ports.ProfileRepository
	locker   UserLocker
	idem     IdempotencyStore
	lockTTL  time.Duration
	log      zerolog.Logger
}

// NewLedgerService returns a LedgerService implementation. locker and idem
// may be nil, which disables locking and request deduplication.
func NewLedgerService(
	ledger ports.LedgerRepository,
	catalog ports.CatalogRepository,
	profiles ports.ProfileRepository,
	locker UserLocker,
	idem IdempotencyStore,
	lockTTL time.Duration,
	log zerolog.Logger,
) ports.LedgerService {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &ledgerService{
		ledger:   ledger,
		catalog:  catalog,
		profiles: profiles,
		locker:   locker,
		idem:     idem,
		lockTTL:  lockTTL,
		log:      log,
	}
}

// EarnActivity credits an activity's reward once per user.
func (s *ledgerService) EarnActivity(ctx context.Context, in ports.EarnActivityInput) (res *ports.LedgerResult, err error) {
	defer s.observe(opEarnActivity, time.Now(), &res, &err)

	release, err := s.lock(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	defer release()

	if replayed, rerr := s.replay(ctx, in.UserID, opEarnActivity, in.IdempotencyKey); replayed != nil || rerr != nil {
		return replayed, rerr
	}

	activity, err := s.catalog.FindActivity(ctx, in.ActivityID)
	if err != nil {
		return nil, fmt.Errorf("earn activity: %w", err)
	}
	if !activity.Active {
		return nil, fmt.Errorf("earn activity: %w", domain.ErrActivityNotFound)
	}
	if activity.CoinReward < 0 {
		return nil, fmt.Errorf("earn activity: %w (reward %d)", domain.ErrInvalidReward, activity.CoinReward)
	}

	existing, err := s.catalog.FindUserActivity(ctx, in.UserID, activity.ID)
	if err != nil {
		return nil, fmt.Errorf("earn activity: %w", err)
	}
	if existing != nil && existing.Completed {
		return s.alreadyCompleted(ctx, in.UserID)
	}

	profile, err := s.ledger.ApplyEarn(ctx, ports.EarnEntry{
		UserID:        in.UserID,
		Activity:      activity,
		TransactionID: uuid.NewString(),
		Description:   "Completed: " + activity.Title,
		At:            time.Now().UTC(),
	})
	if errors.Is(err, domain.ErrAlreadyCompleted) {
		return s.alreadyCompleted(ctx, in.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("earn activity: %w", err)
	}

	s.mark(ctx, in.UserID, opEarnActivity, in.IdempotencyKey)
	metrics.CoinsMovedTotal.WithLabelValues(string(domain.TxEarnActivity)).Add(float64(activity.CoinReward))

	s.log.Info().
		Str("user_id", in.UserID).
		Str("activity_id", activity.ID).
		Int64("amount", activity.CoinReward).
		Int64("balance", profile.CoinsBalance).
		Msg("activity reward credited")

	return &ports.LedgerResult{Profile: profile, Amount: activity.CoinReward}, nil
}

// RedeemReward debits a reward's cost and records the claim.
func (s *ledgerService) RedeemReward(ctx context.Context, in ports.RedeemRewardInput) (res *ports.LedgerResult, err error) {
	defer s.observe(opRedeemReward, time.Now(), &res, &err)

	release, err := s.lock(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	defer release()

	if replayed, rerr := s.replay(ctx, in.UserID, opRedeemReward, in.IdempotencyKey); replayed != nil || rerr != nil {
		return replayed, rerr
	}

	reward, err := s.catalog.FindReward(ctx, in.RewardID)
	if err != nil {
		return nil, fmt.Errorf("redeem reward: %w", err)
	}
	if !reward.Active {
		return nil, fmt.Errorf("redeem reward: %w", domain.ErrRewardNotFound)
	}
	if reward.CoinCost < 0 {
		return nil, fmt.Errorf("redeem reward: %w (cost %d)", domain.ErrInvalidReward, reward.CoinCost)
	}
	if reward.Stock != nil && *reward.Stock <= 0 {
		return nil, fmt.Errorf("redeem reward: %w", domain.ErrOutOfStock)
	}

	current, err := s.profiles.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("redeem reward: %w", err)
	}
	if current.CoinsBalance < reward.CoinCost {
		return nil, fmt.Errorf("redeem reward: %w (balance %d, cost %d)", domain.ErrInsufficientBalance, current.CoinsBalance, reward.CoinCost)
	}

	profile, err := s.ledger.ApplySpend(ctx, ports.SpendEntry{
		UserID:        in.UserID,
		Reward:        reward,
		TransactionID: uuid.NewString(),
		ClaimID:       uuid.NewString(),
		Description:   "Claimed: " + reward.Title,
		At:            time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("redeem reward: %w", err)
	}

	s.mark(ctx, in.UserID, opRedeemReward, in.IdempotencyKey)
	metrics.CoinsMovedTotal.WithLabelValues(string(domain.TxSpendReward)).Add(float64(reward.CoinCost))

	s.log.Info().
		Str("user_id", in.UserID).
		Str("reward_id", reward.ID).
		Int64("amount", -reward.CoinCost).
		Int64("balance", profile.CoinsBalance).
		Msg("reward redeemed")

	return &ports.LedgerResult{Profile: profile, Amount: -reward.CoinCost}, nil
}

// Reconcile rewrites the cached counters from the transaction log.
func (s *ledgerService) Reconcile(ctx context.Context, userID string) (p *domain.Profile, err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = resultFor(err)
		}
		metrics.LedgerOperationsTotal.WithLabelValues(opReconcile, result).Inc()
		metrics.LedgerOperationDuration.WithLabelValues(opReconcile).Observe(time.Since(start).Seconds())
	}()

	release, err := s.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	totals, err := s.ledger.Totals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	p, err = s.ledger.ResetCounters(ctx, userID, totals.Balance(), totals.Earned, domain.LevelFor(totals.Earned))
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	s.log.Info().
		Str("user_id", userID).
		Int64("balance", p.CoinsBalance).
		Int64("total_earned", p.TotalCoinsEarned).
		Msg("ledger reconciled")
	return p, nil
}

// History lists recent transactions, newest first.
func (s *ledgerService) History(ctx context.Context, userID string, limit int) ([]domain.CoinTransaction, error) {
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	txs, err := s.ledger.Recent(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return txs, nil
}

// lock takes the per-user lock. Lock store failures other than contention
// are logged and the operation proceeds unlocked; the gateway's guarded
// writes still hold.
func (s *ledgerService) lock(ctx context.Context, userID string) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}

	release, err := s.locker.Acquire(ctx, userID, s.lockTTL)
	if errors.Is(err, domain.ErrLedgerBusy) {
		return nil, err
	}
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("ledger lock unavailable, proceeding without it")
		return noop, nil
	}

	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to release ledger lock")
		}
	}, nil
}

// replay returns a result when key was already used for op. A nil result
// and nil error mean "not a replay".
func (s *ledgerService) replay(ctx context.Context, userID, op, key string) (*ports.LedgerResult, error) {
	if s.idem == nil || key == "" {
		return nil, nil
	}

	dup, err := s.idem.IsDuplicate(ctx, userID, op, key)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Str("op", op).Msg("idempotency check failed, processing anyway")
		return nil, nil
	}
	if !dup {
		return nil, nil
	}

	s.log.Debug().Str("user_id", userID).Str("op", op).Str("key", key).Msg("duplicate ledger request replayed")
	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &ports.LedgerResult{Profile: profile, Replayed: true}, nil
}

func (s *ledgerService) mark(ctx context.Context, userID, op, key string) {
	if s.idem == nil || key == "" {
		return
	}
	if err := s.idem.Mark(ctx, userID, op, key); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Str("op", op).Msg("failed to set idempotency key")
	}
}

func (s *ledgerService) alreadyCompleted(ctx context.Context, userID string) (*ports.LedgerResult, error) {
	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("earn activity: %w", err)
	}
	return &ports.LedgerResult{Profile: profile, AlreadyCompleted: true}, nil
}

func (s *ledgerService) observe(op string, start time.Time, res **ports.LedgerResult, err *error) {
	result := "ok"
	switch {
	case *err != nil:
		result = resultFor(*err)
	case *res != nil && (*res).Replayed:
		result = "replayed"
	case *res != nil && (*res).AlreadyCompleted:
		result = "already_completed"
	}
	metrics.LedgerOperationsTotal.WithLabelValues(op, result).Inc()
	metrics.LedgerOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func resultFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrLedgerBusy):
		return "busy"
	default:
		return "error"
	}
}
