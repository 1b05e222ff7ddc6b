package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/obalifehub/lifehub/internal/core/domain"
)

type IdentityRepository struct {
	store *Store
}

func NewIdentityRepository(store *Store) *IdentityRepository {
	return &IdentityRepository{store: store}
}

func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error) {
	const query = `
		INSERT INTO identities (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, password_hash, created_at;`

	var out domain.Identity
	err := r.store.pool.QueryRow(ctx, query, identity.ID, identity.Email, identity.PasswordHash, identity.CreatedAt).
		Scan(&out.ID, &out.Email, &out.PasswordHash, &out.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrIdentityExists
		}
		return nil, fmt.Errorf("insert identity: %w", translate(err))
	}
	return &out, nil
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	const query = `SELECT id, email, password_hash, created_at FROM identities WHERE email = $1;`

	var out domain.Identity
	err := r.store.pool.QueryRow(ctx, query, email).Scan(&out.ID, &out.Email, &out.PasswordHash, &out.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("find identity: %w", translate(err))
	}
	return &out, nil
}

func (r *IdentityRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.store.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete identity: %w", translate(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}
