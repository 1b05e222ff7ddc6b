package ports

import (
	"context"

	"github.com/obalifehub/lifehub/internal/core/domain"
)

// IdentityRepository persists authentication principals.
type IdentityRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error)
	Delete(ctx context.Context, id string) error
}
