package domain

import "time"

// TransactionType classifies a coin movement.
type TransactionType string

const (
	TxEarnPurchase TransactionType = "earn_purchase"
	TxEarnActivity TransactionType = "earn_activity"
	TxSpendReward  TransactionType = "spend_reward"
	TxBonus        TransactionType = "bonus"
)

// CoinTransaction is an append-only ledger entry. Amount is positive for
// earnings and negative for spending.
type CoinTransaction struct {
	ID          string          `json:"id" bson:"_id"`
	UserID      string          `json:"user_id" bson:"user_id"`
	Amount      int64           `json:"amount" bson:"amount"`
	Type        TransactionType `json:"transaction_type" bson:"transaction_type"`
	Description string          `json:"description" bson:"description"`
	CreatedAt   time.Time       `json:"created_at" bson:"created_at"`
}

// ActivityCategory groups Kids Zone activities.
type ActivityCategory string

const (
	CategoryGame      ActivityCategory = "game"
	CategoryLearning  ActivityCategory = "learning"
	CategoryChallenge ActivityCategory = "challenge"
)

// Difficulty orders activities in the catalog.
type Difficulty string

const (
	DifficultyBeginner Difficulty = "beginner"
	DifficultyExplorer Difficulty = "explorer"
	DifficultyChampion Difficulty = "champion"
)

// Rank gives the catalog sort position; unknown difficulties sort last.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyBeginner:
		return 0
	case DifficultyExplorer:
		return 1
	case DifficultyChampion:
		return 2
	}
	return 3
}

// Activity is a catalog entry that pays CoinReward when completed.
type Activity struct {
	ID          string           `json:"id" bson:"_id"`
	Title       string           `json:"title" bson:"title"`
	Description string           `json:"description" bson:"description"`
	Category    ActivityCategory `json:"category" bson:"category"`
	Difficulty  Difficulty       `json:"difficulty" bson:"difficulty"`
	CoinReward  int64            `json:"coin_reward" bson:"coin_reward"`
	Icon        string           `json:"icon" bson:"icon"`
	Active      bool             `json:"active" bson:"active"`
	CreatedAt   time.Time        `json:"created_at" bson:"created_at"`
}

// UserActivity is the per-user completion record; one row per user and
// activity.
type UserActivity struct {
	ID          string     `json:"id" bson:"_id"`
	UserID      string     `json:"user_id" bson:"user_id"`
	ActivityID  string     `json:"activity_id" bson:"activity_id"`
	Completed   bool       `json:"completed" bson:"completed"`
	Progress    int        `json:"progress" bson:"progress"`
	CompletedAt *time.Time `json:"completed_at" bson:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
}

// RewardCategory groups wallet rewards.
type RewardCategory string

const (
	RewardDiscount RewardCategory = "discount"
	RewardGift     RewardCategory = "gift"
	RewardSpecial  RewardCategory = "special"
)

// Reward is a catalog entry redeemable for CoinCost coins. A nil Stock means
// unlimited.
type Reward struct {
	ID          string         `json:"id" bson:"_id"`
	Title       string         `json:"title" bson:"title"`
	Description string         `json:"description" bson:"description"`
	CoinCost    int64          `json:"coin_cost" bson:"coin_cost"`
	Icon        string         `json:"icon" bson:"icon"`
	Category    RewardCategory `json:"category" bson:"category"`
	Active      bool           `json:"active" bson:"active"`
	Stock       *int64         `json:"stock" bson:"stock"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at"`
}

// UserReward is a claim of a reward by a user.
type UserReward struct {
	ID        string     `json:"id" bson:"_id"`
	UserID    string     `json:"user_id" bson:"user_id"`
	RewardID  string     `json:"reward_id" bson:"reward_id"`
	ClaimedAt time.Time  `json:"claimed_at" bson:"claimed_at"`
	Used      bool       `json:"used" bson:"used"`
	UsedAt    *time.Time `json:"used_at" bson:"used_at"`
}

// LedgerTotals are sums over a user's transaction log.
type LedgerTotals struct {
	Earned int64 // sum of positive amounts
	Spent  int64 // sum of negative amounts, as a positive number
}

// Balance is the balance implied by the log.
func (t LedgerTotals) Balance() int64 { return t.Earned - t.Spent }
