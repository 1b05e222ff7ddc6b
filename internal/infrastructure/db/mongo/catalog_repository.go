package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/obalifehub/lifehub/internal/core/domain"
)

// CatalogRepository reads activities, rewards and per-user progress.
type CatalogRepository struct {
	db *mongo.Database
}

func NewCatalogRepository(db *mongo.Database) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) FindActivity(ctx context.Context, id string) (*domain.Activity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var a domain.Activity
	if err := r.db.Collection(collActivities).FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrActivityNotFound
		}
		return nil, fmt.Errorf("find activity: %w", translate(err))
	}
	return &a, nil
}

func (r *CatalogRepository) FindReward(ctx context.Context, id string) (*domain.Reward, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rw domain.Reward
	if err := r.db.Collection(collRewards).FindOne(ctx, bson.M{"_id": id}).Decode(&rw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRewardNotFound
		}
		return nil, fmt.Errorf("find reward: %w", translate(err))
	}
	return &rw, nil
}

func (r *CatalogRepository) ActiveActivities(ctx context.Context) ([]domain.Activity, error) {
	var out []domain.Activity
	err := findAll(ctx, r.db.Collection(collActivities), bson.M{"active": true}, options.Find(), &out)
	return out, err
}

func (r *CatalogRepository) ActiveRewards(ctx context.Context) ([]domain.Reward, error) {
	var out []domain.Reward
	opts := options.Find().SetSort(bson.D{{Key: "coin_cost", Value: 1}})
	err := findAll(ctx, r.db.Collection(collRewards), bson.M{"active": true}, opts, &out)
	return out, err
}

// FindUserActivity returns nil, nil when the user never started the activity.
func (r *CatalogRepository) FindUserActivity(ctx context.Context, userID, activityID string) (*domain.UserActivity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ua domain.UserActivity
	err := r.db.Collection(collUserActivities).
		FindOne(ctx, bson.M{"user_id": userID, "activity_id": activityID}).
		Decode(&ua)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user activity: %w", translate(err))
	}
	return &ua, nil
}

func (r *CatalogRepository) UserActivities(ctx context.Context, userID string) ([]domain.UserActivity, error) {
	var out []domain.UserActivity
	err := findAll(ctx, r.db.Collection(collUserActivities), bson.M{"user_id": userID}, options.Find(), &out)
	return out, err
}

func (r *CatalogRepository) UserRewards(ctx context.Context, userID string) ([]domain.UserReward, error) {
	var out []domain.UserReward
	opts := options.Find().SetSort(bson.D{{Key: "claimed_at", Value: -1}})
	err := findAll(ctx, r.db.Collection(collUserRewards), bson.M{"user_id": userID}, opts, &out)
	return out, err
}

func findAll(ctx context.Context, col *mongo.Collection, filter bson.M, opts *options.FindOptions, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("find %s: %w", col.Name(), translate(err))
	}
	defer cur.Close(ctx)

	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", col.Name(), translate(err))
	}
	return nil
}
