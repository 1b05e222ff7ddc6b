package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/obalifehub/lifehub/internal/core/domain"
)

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock re-taken by another request is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// UserLocker is a per-user mutual exclusion lock for ledger operations.
// Key format: ledger:lock:<user_id>
type UserLocker struct {
	client *redis.Client
}

func NewUserLocker(client *redis.Client) *UserLocker {
	return &UserLocker{client: client}
}

// Acquire takes the lock for ttl. It returns domain.ErrLedgerBusy when the
// lock is held.
func (l *UserLocker) Acquire(ctx context.Context, userID string, ttl time.Duration) (func(context.Context) error, error) {
	key := l.key(userID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire ledger lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrLedgerBusy
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("release ledger lock: %w", err)
		}
		return nil
	}, nil
}

func (l *UserLocker) key(userID string) string {
	return "ledger:lock:" + userID
}
