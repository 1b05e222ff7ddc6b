package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/obalifehub/lifehub/internal/core/domain"
	"github.com/obalifehub/lifehub/internal/core/ports"
)

// LedgerRepository implements ports.LedgerRepository; each Apply call runs
// in one SQL transaction.
type LedgerRepository struct {
	store *Store
}

func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

func (r *LedgerRepository) ApplyEarn(ctx context.Context, e ports.EarnEntry) (*domain.Profile, error) {
	var out *domain.Profile
	err := pgx.BeginFunc(ctx, r.store.pool, func(tx pgx.Tx) error {
		const completeQuery = `
			INSERT INTO user_activities (id, user_id, activity_id, completed, progress, completed_at, created_at)
			VALUES ($1, $2, $3, TRUE, 100, $4, $4)
			ON CONFLICT (user_id, activity_id) DO UPDATE
				SET completed = TRUE, progress = 100, completed_at = EXCLUDED.completed_at
				WHERE user_activities.completed = FALSE
			RETURNING id;`
		var completionID string
		err := tx.QueryRow(ctx, completeQuery, e.UserID+":"+e.Activity.ID, e.UserID, e.Activity.ID, e.At).Scan(&completionID)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAlreadyCompleted
		}
		if err != nil {
			return fmt.Errorf("upsert user activity: %w", err)
		}

		if err := insertTransaction(ctx, tx, domain.CoinTransaction{
			ID:          e.TransactionID,
			UserID:      e.UserID,
			Amount:      e.Activity.CoinReward,
			Type:        domain.TxEarnActivity,
			Description: e.Description,
			CreatedAt:   e.At,
		}); err != nil {
			return err
		}

		const creditQuery = `
			UPDATE profiles
			SET coins_balance = coins_balance + $2, total_coins_earned = total_coins_earned + $2, updated_at = $3
			WHERE id = $1
			RETURNING ` + profileColumns + `;`
		p, err := scanProfile(tx.QueryRow(ctx, creditQuery, e.UserID, e.Activity.CoinReward, e.At))
		if err != nil {
			return err
		}

		if level := domain.LevelFor(p.TotalCoinsEarned); level != p.Level {
			if _, err := tx.Exec(ctx, `UPDATE profiles SET level = $2 WHERE id = $1;`, e.UserID, string(level)); err != nil {
				return fmt.Errorf("set level: %w", err)
			}
			p.Level = level
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (r *LedgerRepository) ApplySpend(ctx context.Context, e ports.SpendEntry) (*domain.Profile, error) {
	var out *domain.Profile
	err := pgx.BeginFunc(ctx, r.store.pool, func(tx pgx.Tx) error {
		cost := e.Reward.CoinCost

		const debitQuery = `
			UPDATE profiles
			SET coins_balance = coins_balance - $2, updated_at = $3
			WHERE id = $1 AND coins_balance >= $2
			RETURNING ` + profileColumns + `;`
		p, err := scanProfile(tx.QueryRow(ctx, debitQuery, e.UserID, cost, e.At))
		if errors.Is(err, domain.ErrProfileNotFound) {
			var exists bool
			if qerr := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1);`, e.UserID).Scan(&exists); qerr != nil {
				return fmt.Errorf("check profile: %w", qerr)
			}
			if exists {
				return domain.ErrInsufficientBalance
			}
			return domain.ErrProfileNotFound
		}
		if err != nil {
			return err
		}

		if e.Reward.Stock != nil {
			tag, err := tx.Exec(ctx, `UPDATE rewards SET stock = stock - 1 WHERE id = $1 AND stock > 0;`, e.Reward.ID)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return domain.ErrOutOfStock
			}
		}

		if err := insertTransaction(ctx, tx, domain.CoinTransaction{
			ID:          e.TransactionID,
			UserID:      e.UserID,
			Amount:      -cost,
			Type:        domain.TxSpendReward,
			Description: e.Description,
			CreatedAt:   e.At,
		}); err != nil {
			return err
		}

		const claimQuery = `
			INSERT INTO user_rewards (id, user_id, reward_id, claimed_at, used)
			VALUES ($1, $2, $3, $4, FALSE);`
		if _, err := tx.Exec(ctx, claimQuery, e.ClaimID, e.UserID, e.Reward.ID, e.At); err != nil {
			return fmt.Errorf("insert claim: %w", err)
		}

		out = p
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (r *LedgerRepository) Totals(ctx context.Context, userID string) (domain.LedgerTotals, error) {
	const query = `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0),
			COALESCE(-SUM(amount) FILTER (WHERE amount < 0), 0)
		FROM coin_transactions
		WHERE user_id = $1;`

	var t domain.LedgerTotals
	if err := r.store.pool.QueryRow(ctx, query, userID).Scan(&t.Earned, &t.Spent); err != nil {
		return domain.LedgerTotals{}, fmt.Errorf("sum transactions: %w", translate(err))
	}
	return t, nil
}

func (r *LedgerRepository) ResetCounters(ctx context.Context, userID string, balance, totalEarned int64, level domain.Level) (*domain.Profile, error) {
	const query = `
		UPDATE profiles
		SET coins_balance = $2, total_coins_earned = $3, level = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + profileColumns + `;`
	return scanProfile(r.store.pool.QueryRow(ctx, query, userID, balance, totalEarned, string(level)))
}

func (r *LedgerRepository) Recent(ctx context.Context, userID string, limit int) ([]domain.CoinTransaction, error) {
	const query = `
		SELECT id, user_id, amount, transaction_type, description, created_at
		FROM coin_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2;`

	rows, err := r.store.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", translate(err))
	}
	defer rows.Close()

	txs := make([]domain.CoinTransaction, 0, limit)
	for rows.Next() {
		var (
			t   domain.CoinTransaction
			typ string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &typ, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = domain.TransactionType(typ)
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", translate(err))
	}
	return txs, nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, t domain.CoinTransaction) error {
	const query = `
		INSERT INTO coin_transactions (id, user_id, amount, transaction_type, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6);`
	if _, err := tx.Exec(ctx, query, t.ID, t.UserID, t.Amount, string(t.Type), t.Description, t.CreatedAt); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}
