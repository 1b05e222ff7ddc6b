package handler

import (
	"time"

	"github.com/obalifehub/lifehub/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Auth ---

type signUpRequest struct {
	Email    string `json:"email"     validate:"required,email"`
	Password string `json:"password"  validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required,max=120"`
	Role     string `json:"role"      validate:"required"`
}

type signInRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Token     string           `json:"token"`
	SessionID string           `json:"session_id"`
	State     string           `json:"state"`
	Profile   *profileResponse `json:"profile"`
}

// --- Profile ---

// profileResponse is the enriched profile: stored fields and derived
// capability flags side by side.
type profileResponse struct {
	domain.SmartProfile
	ReferralCode  string               `json:"referral_code"`
	LevelProgress domain.LevelProgress `json:"level_progress"`
}

type meResponse struct {
	State   string           `json:"state"`
	Profile *profileResponse `json:"profile"`
}

type updateProfileRequest struct {
	FullName          *string `json:"full_name"          validate:"omitempty,min=1,max=120"`
	AvatarURL         *string `json:"avatar_url"         validate:"omitempty,url,max=2048"`
	PreferredLanguage *string `json:"preferred_language" validate:"omitempty,len=2"`
	AccessibilityMode *bool   `json:"accessibility_mode"`
	Role              *string `json:"role"`
}

// --- Wallet ---

type ledgerResponse struct {
	Amount           int64            `json:"amount"`
	AlreadyCompleted bool             `json:"already_completed,omitempty"`
	Replayed         bool             `json:"replayed,omitempty"`
	Profile          *profileResponse `json:"profile"`
}

type transactionResponse struct {
	ID          string    `json:"id"`
	Amount      int64     `json:"amount"`
	Type        string    `json:"transaction_type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type listTransactionsResponse struct {
	Data []transactionResponse `json:"data"`
}

type rewardResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CoinCost    int64  `json:"coin_cost"`
	Icon        string `json:"icon"`
	Category    string `json:"category"`
	Stock       *int64 `json:"stock"`
	Affordable  bool   `json:"affordable"`
}

type listRewardsResponse struct {
	Data []rewardResponse `json:"data"`
}

type claimResponse struct {
	ID        string     `json:"id"`
	RewardID  string     `json:"reward_id"`
	ClaimedAt time.Time  `json:"claimed_at"`
	Used      bool       `json:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

type listClaimsResponse struct {
	Data []claimResponse `json:"data"`
}

// --- Kids Zone ---

type activityResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Difficulty  string     `json:"difficulty"`
	CoinReward  int64      `json:"coin_reward"`
	Icon        string     `json:"icon"`
	Completed   bool       `json:"completed"`
	Progress    int        `json:"progress"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type listActivitiesResponse struct {
	Data []activityResponse `json:"data"`
}
