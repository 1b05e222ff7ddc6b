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

const defaultTimeout = 10 * time.Second

const (
	collIdentities     = "identities"
	collProfiles       = "profiles"
	collTransactions   = "coin_transactions"
	collActivities     = "activities"
	collUserActivities = "user_activities"
	collRewards        = "rewards"
	collUserRewards    = "user_rewards"
)

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. A default timeout is
// applied when none is provided.
//
// Ledger writes use multi-document transactions, so the deployment must be a
// replica set (a single-node one is enough).
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(cfg.Database)
	return client, db, nil
}

// EnsureIndexes creates the indexes the gateway relies on, including the
// uniqueness constraints behind sign-up and activity completion.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	unique := options.Index().SetUnique(true)
	plan := map[string][]mongo.IndexModel{
		collIdentities: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		},
		collProfiles: {
			{Keys: bson.D{{Key: "family_id", Value: 1}}},
		},
		collTransactions: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		collUserActivities: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "activity_id", Value: 1}}, Options: unique},
		},
		collUserRewards: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "claimed_at", Value: -1}}},
		},
		collActivities: {
			{Keys: bson.D{{Key: "active", Value: 1}}},
		},
		collRewards: {
			{Keys: bson.D{{Key: "active", Value: 1}, {Key: "coin_cost", Value: 1}}},
		},
	}

	for coll, models := range plan {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// translate maps driver errors onto the domain taxonomy.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return err
	case mongo.IsNetworkError(err), mongo.IsTimeout(err):
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	default:
		return err
	}
}
