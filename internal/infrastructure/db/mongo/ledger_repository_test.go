package mongo

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/obalifehub/lifehub/internal/core/domain"
)

func TestResetCountersUpdate_StampsUpdatedAt(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	set, ok := resetCountersUpdate(40, 90, domain.LevelSilver, at)["$set"].(bson.M)
	if !ok {
		t.Fatalf("expected a $set document")
	}
	if set["coins_balance"] != int64(40) || set["total_coins_earned"] != int64(90) || set["level"] != domain.LevelSilver {
		t.Fatalf("unexpected counters: %+v", set)
	}
	if got, _ := set["updated_at"].(time.Time); !got.Equal(at) {
		t.Fatalf("expected updated_at %v, got %v", at, set["updated_at"])
	}
}
