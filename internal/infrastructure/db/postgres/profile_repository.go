package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/obalifehub/lifehub/internal/core/domain"
)

const profileColumns = `id, email, full_name, role, family_id, avatar_url, coins_balance, level,
	total_coins_earned, monthly_savings, preferred_language, accessibility_mode, created_at, updated_at`

type ProfileRepository struct {
	store *Store
}

func NewProfileRepository(store *Store) *ProfileRepository {
	return &ProfileRepository{store: store}
}

func (r *ProfileRepository) Insert(ctx context.Context, p *domain.Profile) error {
	const query = `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);`

	_, err := r.store.pool.Exec(ctx, query,
		p.ID, p.Email, p.FullName, string(p.Role), p.FamilyID, p.AvatarURL, p.CoinsBalance, string(p.Level),
		p.TotalCoinsEarned, p.MonthlySavings, p.PreferredLanguage, p.AccessibilityMode, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", translate(err))
	}
	return nil
}

func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	row := r.store.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1;`, id)
	return scanProfile(row)
}

// Update sets the non-nil fields of u and returns the stored row.
func (r *ProfileRepository) Update(ctx context.Context, id string, u domain.ProfileUpdate) (*domain.Profile, error) {
	sets := []string{"updated_at = $2"}
	args := []any{id, time.Now().UTC()}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.FullName != nil {
		add("full_name", *u.FullName)
	}
	if u.AvatarURL != nil {
		add("avatar_url", *u.AvatarURL)
	}
	if u.PreferredLanguage != nil {
		add("preferred_language", *u.PreferredLanguage)
	}
	if u.AccessibilityMode != nil {
		add("accessibility_mode", *u.AccessibilityMode)
	}
	if u.Role != nil {
		add("role", string(*u.Role))
	}

	query := `UPDATE profiles SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + profileColumns + `;`
	return scanProfile(r.store.pool.QueryRow(ctx, query, args...))
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var (
		p     domain.Profile
		role  string
		level string
	)
	err := row.Scan(
		&p.ID, &p.Email, &p.FullName, &role, &p.FamilyID, &p.AvatarURL, &p.CoinsBalance, &level,
		&p.TotalCoinsEarned, &p.MonthlySavings, &p.PreferredLanguage, &p.AccessibilityMode, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", translate(err))
	}
	p.Role = domain.Role(role)
	p.Level = domain.Level(level)
	return &p, nil
}
