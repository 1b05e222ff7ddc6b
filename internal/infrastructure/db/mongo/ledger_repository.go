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
	"github.com/obalifehub/lifehub/internal/core/ports"
)

// LedgerRepository implements ports.LedgerRepository with multi-document
// transactions over profiles, coin_transactions, user_activities, rewards and
// user_rewards.
type LedgerRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewLedgerRepository(client *mongo.Client, db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{client: client, db: db}
}

// ApplyEarn marks the activity completed, appends the earn transaction and
// credits the profile in one transaction.
func (r *LedgerRepository) ApplyEarn(ctx context.Context, e ports.EarnEntry) (*domain.Profile, error) {
	return r.inTx(ctx, func(sc mongo.SessionContext) (*domain.Profile, error) {
		ua := r.db.Collection(collUserActivities)
		filter := bson.M{"user_id": e.UserID, "activity_id": e.Activity.ID}

		var existing domain.UserActivity
		err := ua.FindOne(sc, filter).Decode(&existing)
		switch {
		case err == nil && existing.Completed:
			return nil, domain.ErrAlreadyCompleted
		case err != nil && !errors.Is(err, mongo.ErrNoDocuments):
			return nil, fmt.Errorf("find user activity: %w", err)
		}

		at := e.At
		_, err = ua.UpdateOne(sc, filter, bson.M{
			"$set": bson.M{"completed": true, "progress": 100, "completed_at": at},
			"$setOnInsert": bson.M{
				"_id":        e.UserID + ":" + e.Activity.ID,
				"created_at": at,
			},
		}, options.Update().SetUpsert(true))
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrAlreadyCompleted
		}
		if err != nil {
			return nil, fmt.Errorf("upsert user activity: %w", err)
		}

		tx := domain.CoinTransaction{
			ID:          e.TransactionID,
			UserID:      e.UserID,
			Amount:      e.Activity.CoinReward,
			Type:        domain.TxEarnActivity,
			Description: e.Description,
			CreatedAt:   at,
		}
		if _, err := r.db.Collection(collTransactions).InsertOne(sc, tx); err != nil {
			return nil, fmt.Errorf("insert transaction: %w", err)
		}

		p, err := r.adjust(sc, bson.M{"_id": e.UserID}, bson.M{
			"$inc": bson.M{"coins_balance": e.Activity.CoinReward, "total_coins_earned": e.Activity.CoinReward},
			"$set": bson.M{"updated_at": at},
		})
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, domain.ErrProfileNotFound
		}

		if level := domain.LevelFor(p.TotalCoinsEarned); level != p.Level {
			if _, err := r.db.Collection(collProfiles).UpdateOne(sc, bson.M{"_id": e.UserID}, bson.M{"$set": bson.M{"level": level}}); err != nil {
				return nil, fmt.Errorf("set level: %w", err)
			}
			p.Level = level
		}
		return p, nil
	})
}

// ApplySpend debits the profile only while the balance covers the cost,
// decrements limited stock, appends the spend transaction and records the
// claim in one transaction.
func (r *LedgerRepository) ApplySpend(ctx context.Context, e ports.SpendEntry) (*domain.Profile, error) {
	return r.inTx(ctx, func(sc mongo.SessionContext) (*domain.Profile, error) {
		cost := e.Reward.CoinCost

		p, err := r.adjust(sc,
			bson.M{"_id": e.UserID, "coins_balance": bson.M{"$gte": cost}},
			bson.M{"$inc": bson.M{"coins_balance": -cost}, "$set": bson.M{"updated_at": e.At}},
		)
		if err != nil {
			return nil, err
		}
		if p == nil {
			if _, err := findProfile(sc, r.db.Collection(collProfiles), e.UserID); err != nil {
				return nil, err
			}
			return nil, domain.ErrInsufficientBalance
		}

		if e.Reward.Stock != nil {
			res, err := r.db.Collection(collRewards).UpdateOne(sc,
				bson.M{"_id": e.Reward.ID, "stock": bson.M{"$gt": 0}},
				bson.M{"$inc": bson.M{"stock": -1}},
			)
			if err != nil {
				return nil, fmt.Errorf("decrement stock: %w", err)
			}
			if res.MatchedCount == 0 {
				return nil, domain.ErrOutOfStock
			}
		}

		tx := domain.CoinTransaction{
			ID:          e.TransactionID,
			UserID:      e.UserID,
			Amount:      -cost,
			Type:        domain.TxSpendReward,
			Description: e.Description,
			CreatedAt:   e.At,
		}
		if _, err := r.db.Collection(collTransactions).InsertOne(sc, tx); err != nil {
			return nil, fmt.Errorf("insert transaction: %w", err)
		}

		claim := domain.UserReward{
			ID:        e.ClaimID,
			UserID:    e.UserID,
			RewardID:  e.Reward.ID,
			ClaimedAt: e.At,
		}
		if _, err := r.db.Collection(collUserRewards).InsertOne(sc, claim); err != nil {
			return nil, fmt.Errorf("insert claim: %w", err)
		}
		return p, nil
	})
}

// Totals sums positive and negative amounts of the user's transactions.
func (r *LedgerRepository) Totals(ctx context.Context, userID string) (domain.LedgerTotals, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"earned": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$gt": bson.A{"$amount", 0}}, "$amount", 0,
			}}},
			"spent": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$lt": bson.A{"$amount", 0}}, bson.M{"$multiply": bson.A{"$amount", -1}}, 0,
			}}},
		}}},
	}

	cur, err := r.db.Collection(collTransactions).Aggregate(ctx, pipeline)
	if err != nil {
		return domain.LedgerTotals{}, fmt.Errorf("sum transactions: %w", translate(err))
	}
	defer cur.Close(ctx)

	var rows []struct {
		Earned int64 `bson:"earned"`
		Spent  int64 `bson:"spent"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return domain.LedgerTotals{}, fmt.Errorf("decode totals: %w", translate(err))
	}
	if len(rows) == 0 {
		return domain.LedgerTotals{}, nil
	}
	return domain.LedgerTotals{Earned: rows[0].Earned, Spent: rows[0].Spent}, nil
}

func (r *LedgerRepository) ResetCounters(ctx context.Context, userID string, balance, totalEarned int64, level domain.Level) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	p, err := r.adjust(ctx, bson.M{"_id": userID}, resetCountersUpdate(balance, totalEarned, level, time.Now().UTC()))
	if err != nil {
		return nil, translate(err)
	}
	if p == nil {
		return nil, domain.ErrProfileNotFound
	}
	return p, nil
}

func (r *LedgerRepository) Recent(ctx context.Context, userID string, limit int) ([]domain.CoinTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.db.Collection(collTransactions).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", translate(err))
	}
	defer cur.Close(ctx)

	txs := make([]domain.CoinTransaction, 0, limit)
	if err := cur.All(ctx, &txs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", translate(err))
	}
	return txs, nil
}

// adjust applies update to the profile matching filter and returns the new
// row, or nil when nothing matched.
func (r *LedgerRepository) adjust(ctx context.Context, filter, update bson.M) (*domain.Profile, error) {
	var p domain.Profile
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.db.Collection(collProfiles).FindOneAndUpdate(ctx, filter, update, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update profile counters: %w", err)
	}
	return &p, nil
}

func (r *LedgerRepository) inTx(ctx context.Context, fn func(mongo.SessionContext) (*domain.Profile, error)) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	sess, err := r.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("start session: %w", translate(err))
	}
	defer sess.EndSession(ctx)

	out, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return fn(sc)
	})
	if err != nil {
		return nil, translate(err)
	}
	return out.(*domain.Profile), nil
}

func resetCountersUpdate(balance, totalEarned int64, level domain.Level, at time.Time) bson.M {
	return bson.M{"$set": bson.M{
		"coins_balance":      balance,
		"total_coins_earned": totalEarned,
		"level":              level,
		"updated_at":         at,
	}}
}
