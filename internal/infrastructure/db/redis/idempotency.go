package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers Idempotency-Key values of confirmed ledger
// writes.
// Key format: ledger:idem:<user_id>:<operation>:<key>
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore wraps client; keys expire after ttl (24h when zero).
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// IsDuplicate reports whether key was already used for this user and operation.
func (s *IdempotencyStore) IsDuplicate(ctx context.Context, userID, op, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(userID, op, key)).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency check: %w", err)
	}
	return n > 0, nil
}

// Mark records key as used.
func (s *IdempotencyStore) Mark(ctx context.Context, userID, op, key string) error {
	return s.client.Set(ctx, s.key(userID, op, key), "1", s.ttl).Err()
}

func (s *IdempotencyStore) key(userID, op, key string) string {
	return fmt.Sprintf("ledger:idem:%s:%s:%s", userID, op, key)
}
