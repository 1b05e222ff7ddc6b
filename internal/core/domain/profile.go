package domain

import (
	"strings"
	"time"
)

// Role is the account type chosen at sign-up. It is the only input to the
// capability mapping.
type Role string

const (
	RoleParent Role = "parent"
	RoleChild  Role = "child"
	RoleSenior Role = "senior"
)

// ParseRole normalises s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleParent, RoleChild, RoleSenior:
		return r, true
	}
	return r, false
}

// Level is the loyalty tier derived from lifetime earnings.
type Level string

const (
	LevelBronze Level = "bronze"
	LevelSilver Level = "silver"
	LevelGold   Level = "gold"
)

const (
	silverThreshold int64 = 51
	goldThreshold   int64 = 150
)

// LevelFor returns the tier reached with total lifetime coins.
func LevelFor(totalEarned int64) Level {
	switch {
	case totalEarned >= goldThreshold:
		return LevelGold
	case totalEarned >= silverThreshold:
		return LevelSilver
	default:
		return LevelBronze
	}
}

// LevelProgress describes how far a profile is from its next tier.
type LevelProgress struct {
	Next     string  `json:"next"`
	Progress float64 `json:"progress"`
	Target   int64   `json:"target"`
}

// ProgressFor computes the wallet progress bar for totalEarned.
// Progress is a percentage in [0, 100].
func ProgressFor(totalEarned int64) LevelProgress {
	switch {
	case totalEarned >= goldThreshold:
		return LevelProgress{Next: "max", Progress: 100, Target: goldThreshold}
	case totalEarned >= silverThreshold:
		span := float64(goldThreshold - silverThreshold)
		return LevelProgress{
			Next:     string(LevelGold),
			Progress: float64(totalEarned-silverThreshold) / span * 100,
			Target:   goldThreshold,
		}
	default:
		if totalEarned < 0 {
			totalEarned = 0
		}
		return LevelProgress{
			Next:     string(LevelSilver),
			Progress: float64(totalEarned) / float64(silverThreshold) * 100,
			Target:   silverThreshold,
		}
	}
}

// Supported values for Profile.PreferredLanguage.
var languages = map[string]struct{}{
	"en": {}, "az": {}, "tr": {}, "ru": {}, "ar": {},
}

const DefaultLanguage = "en"

// MaxAvatarURLLen bounds avatar_url so a profile row stays small.
const MaxAvatarURLLen = 2048

// ValidLanguage reports whether code is a supported UI language.
func ValidLanguage(code string) bool {
	_, ok := languages[code]
	return ok
}

// Profile is the persisted identity record owned by the gateway.
type Profile struct {
	ID                string    `json:"id" bson:"_id"`
	Email             string    `json:"email" bson:"email"`
	FullName          string    `json:"full_name" bson:"full_name"`
	Role              Role      `json:"role" bson:"role"`
	FamilyID          string    `json:"family_id" bson:"family_id"`
	AvatarURL         *string   `json:"avatar_url" bson:"avatar_url"`
	CoinsBalance      int64     `json:"coins_balance" bson:"coins_balance"`
	Level             Level     `json:"level" bson:"level"`
	TotalCoinsEarned  int64     `json:"total_coins_earned" bson:"total_coins_earned"`
	MonthlySavings    float64   `json:"monthly_savings" bson:"monthly_savings"`
	PreferredLanguage string    `json:"preferred_language" bson:"preferred_language"`
	AccessibilityMode bool      `json:"accessibility_mode" bson:"accessibility_mode"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" bson:"updated_at"`
}

// NewProfile builds the row inserted at sign-up: zeroed coins, bronze level.
func NewProfile(id, email, fullName string, role Role, familyID string, now time.Time) *Profile {
	return &Profile{
		ID:                id,
		Email:             email,
		FullName:          fullName,
		Role:              role,
		FamilyID:          familyID,
		Level:             LevelBronze,
		PreferredLanguage: DefaultLanguage,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// ReferralCode is the shareable invite code: the first eight characters of
// the profile id, upper-cased.
func (p *Profile) ReferralCode() string {
	id := p.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

// ProfileUpdate carries the user-editable profile fields. Nil fields are
// left untouched.
type ProfileUpdate struct {
	FullName          *string
	AvatarURL         *string
	PreferredLanguage *string
	AccessibilityMode *bool
	Role              *Role
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.FullName == nil && u.AvatarURL == nil && u.PreferredLanguage == nil &&
		u.AccessibilityMode == nil && u.Role == nil
}
