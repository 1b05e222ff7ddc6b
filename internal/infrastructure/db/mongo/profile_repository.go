package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/obalifehub/lifehub/internal/core/domain"
)

// ProfileRepository stores profile rows keyed by identity id.
type ProfileRepository struct {
	col *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{col: db.Collection(collProfiles)}
}

// Insert creates the single profile row of a new account.
func (r *ProfileRepository) Insert(ctx context.Context, p *domain.Profile) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert profile: %w", translate(err))
	}
	return nil
}

func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return findProfile(ctx, r.col, id)
}

// Update sets the non-nil fields of u and returns the stored row.
func (r *ProfileRepository) Update(ctx context.Context, id string, u domain.ProfileUpdate) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"updated_at": time.Now().UTC()}
	if u.FullName != nil {
		set["full_name"] = *u.FullName
	}
	if u.AvatarURL != nil {
		set["avatar_url"] = *u.AvatarURL
	}
	if u.PreferredLanguage != nil {
		set["preferred_language"] = *u.PreferredLanguage
	}
	if u.AccessibilityMode != nil {
		set["accessibility_mode"] = *u.AccessibilityMode
	}
	if u.Role != nil {
		set["role"] = string(*u.Role)
	}

	var p domain.Profile
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("update profile: %w", translate(err))
	}
	return &p, nil
}

func findProfile(ctx context.Context, col *mongo.Collection, id string) (*domain.Profile, error) {
	var p domain.Profile
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("find profile: %w", translate(err))
	}
	return &p, nil
}
