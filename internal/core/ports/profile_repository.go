package ports

import (
	"context"

	"github.com/obalifehub/lifehub/internal/core/domain"
)

// ProfileRepository reads and writes profile rows.
type ProfileRepository interface {
	Insert(ctx context.Context, p *domain.Profile) error
	FindByID(ctx context.Context, id string) (*domain.Profile, error)
	// Update applies the non-nil fields of u and returns the new row.
	Update(ctx context.Context, id string, u domain.ProfileUpdate) (*domain.Profile, error)
}

// ProfileChangeFeed streams row-level changes of the profiles table. Run
// blocks until ctx is cancelled or the feed fails.
type ProfileChangeFeed interface {
	Run(ctx context.Context, sink func(domain.ProfileChanged)) error
}

// ProfileEventHandler consumes profile change notifications.
type ProfileEventHandler interface {
	HandleProfileChanged(ctx context.Context, event domain.ProfileChanged) error
}
