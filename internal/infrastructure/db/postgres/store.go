package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obalifehub/lifehub/internal/core/domain"
)

const (
	uniqueViolation = "23505"

	// profileChannel is the NOTIFY channel fed by the profiles trigger.
	profileChannel = "profile_changes"
)

// maxNotifyRowBytes keeps trigger payloads below the 8000-byte NOTIFY limit.
// A larger row is announced by op and id only, and listeners reload it.
const maxNotifyRowBytes = 7900

var notifyFunctionSQL = fmt.Sprintf(`CREATE OR REPLACE FUNCTION notify_profile_change() RETURNS trigger AS $$
		DECLARE
			payload TEXT;
		BEGIN
			IF TG_OP = 'DELETE' THEN
				PERFORM pg_notify('%[1]s', json_build_object('op', TG_OP, 'id', OLD.id)::text);
				RETURN OLD;
			END IF;
			payload := json_build_object('op', TG_OP, 'id', NEW.id, 'row', row_to_json(NEW))::text;
			IF octet_length(payload) > %[2]d THEN
				payload := json_build_object('op', TG_OP, 'id', NEW.id)::text;
			END IF;
			PERFORM pg_notify('%[1]s', payload);
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql;`, profileChannel, maxNotifyRowBytes)

// Store owns the connection pool shared by the Postgres repositories.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL and applies the schema.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS identities (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			full_name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL,
			family_id TEXT NOT NULL,
			avatar_url TEXT,
			coins_balance BIGINT NOT NULL DEFAULT 0,
			level TEXT NOT NULL DEFAULT 'bronze',
			total_coins_earned BIGINT NOT NULL DEFAULT 0,
			monthly_savings DOUBLE PRECISION NOT NULL DEFAULT 0,
			preferred_language TEXT NOT NULL DEFAULT 'en',
			accessibility_mode BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS profiles_family_idx ON profiles (family_id);`,
		`CREATE TABLE IF NOT EXISTS coin_transactions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES profiles(id),
			amount BIGINT NOT NULL,
			transaction_type TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS coin_transactions_user_idx ON coin_transactions (user_id, created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS activities (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			coin_reward BIGINT NOT NULL DEFAULT 0,
			icon TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS user_activities (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES profiles(id),
			activity_id TEXT NOT NULL REFERENCES activities(id),
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			progress INTEGER NOT NULL DEFAULT 0,
			completed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, activity_id)
		);`,
		`CREATE TABLE IF NOT EXISTS rewards (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			coin_cost BIGINT NOT NULL,
			icon TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			stock BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS user_rewards (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES profiles(id),
			reward_id TEXT NOT NULL REFERENCES rewards(id),
			claimed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			used BOOLEAN NOT NULL DEFAULT FALSE,
			used_at TIMESTAMPTZ
		);`,
		`CREATE INDEX IF NOT EXISTS user_rewards_user_idx ON user_rewards (user_id, claimed_at DESC);`,
		notifyFunctionSQL,
		`DROP TRIGGER IF EXISTS profiles_notify ON profiles;`,
		`CREATE TRIGGER profiles_notify AFTER INSERT OR UPDATE OR DELETE ON profiles
			FOR EACH ROW EXECUTE FUNCTION notify_profile_change();`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// translate maps driver errors onto the domain taxonomy.
func translate(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return err
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	return err
}
