package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/obalifehub/lifehub/internal/core/domain"
)

// FeedSource labels events coming from the profiles NOTIFY channel.
const FeedSource = "postgres_notify"

// ProfileListener turns notifications from the profiles trigger into
// ProfileChanged events. It holds one pooled connection while running.
type ProfileListener struct {
	store *Store
}

func NewProfileListener(store *Store) *ProfileListener {
	return &ProfileListener{store: store}
}

type notifyPayload struct {
	Op  string          `json:"op"`
	ID  string          `json:"id"`
	Row *domain.Profile `json:"row"`
}

// Run blocks delivering events to sink until ctx is cancelled or the
// connection fails.
func (l *ProfileListener) Run(ctx context.Context, sink func(domain.ProfileChanged)) error {
	conn, err := l.store.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", translate(err))
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+profileChannel); err != nil {
		return fmt.Errorf("listen %s: %w", profileChannel, translate(err))
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("wait for notification: %w", translate(err))
		}

		ev, err := parseNotification(n.Payload)
		if err != nil {
			// A malformed payload carries no usable user id; skip it.
			continue
		}
		sink(ev)
	}
}

func parseNotification(payload string) (domain.ProfileChanged, error) {
	var p notifyPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return domain.ProfileChanged{}, fmt.Errorf("decode profile notification: %w", err)
	}
	if p.ID == "" {
		return domain.ProfileChanged{}, errors.New("profile notification without id")
	}

	ev := domain.ProfileChanged{
		UserID:   p.ID,
		Source:   FeedSource,
		Received: time.Now().UTC(),
	}
	switch strings.ToUpper(p.Op) {
	case "INSERT":
		ev.Kind = domain.ChangeInsert
	case "DELETE":
		ev.Kind = domain.ChangeDelete
	default:
		ev.Kind = domain.ChangeUpdate
	}
	if ev.Kind != domain.ChangeDelete {
		ev.Row = p.Row
	}
	return ev, nil
}
