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

// FeedSource labels events coming from the profiles change stream.
const FeedSource = "mongo_change_stream"

// ProfileWatcher turns the profiles change stream into ProfileChanged
// events. Updates carry the post-image via updateLookup; deletes carry no row.
type ProfileWatcher struct {
	col *mongo.Collection
}

func NewProfileWatcher(db *mongo.Database) *ProfileWatcher {
	return &ProfileWatcher{col: db.Collection(collProfiles)}
}

type profileChange struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument *domain.Profile `bson:"fullDocument"`
}

// Run blocks delivering events to sink until ctx is cancelled or the stream
// fails.
func (w *ProfileWatcher) Run(ctx context.Context, sink func(domain.ProfileChanged)) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"operationType": bson.M{"$in": bson.A{"insert", "update", "replace", "delete"}},
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	cs, err := w.col.Watch(ctx, pipeline, opts)
	if err != nil {
		return fmt.Errorf("watch profiles: %w", translate(err))
	}
	defer cs.Close(context.Background())

	for cs.Next(ctx) {
		var ch profileChange
		if err := cs.Decode(&ch); err != nil {
			return fmt.Errorf("decode profile change: %w", err)
		}
		sink(toProfileChanged(ch))
	}

	if err := cs.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("profile change stream: %w", translate(err))
	}
	return ctx.Err()
}

func toProfileChanged(ch profileChange) domain.ProfileChanged {
	ev := domain.ProfileChanged{
		UserID:   ch.DocumentKey.ID,
		Source:   FeedSource,
		Received: time.Now().UTC(),
	}
	switch ch.OperationType {
	case "insert":
		ev.Kind = domain.ChangeInsert
	case "delete":
		ev.Kind = domain.ChangeDelete
	default:
		ev.Kind = domain.ChangeUpdate
	}
	if ev.Kind != domain.ChangeDelete {
		ev.Row = ch.FullDocument
	}
	return ev
}
