package domain

import "errors"

// Authentication and sign-up.
var (
	ErrAuth               = errors.New("authentication failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrIdentityExists     = errors.New("identity already exists")
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrSignup             = errors.New("sign-up failed")
	ErrInvalidRole        = errors.New("invalid role")
	ErrNotSignedIn        = errors.New("not signed in")
)

// Profiles and the gateway.
var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	ErrInvalidProfile     = errors.New("invalid profile update")
)

// Ledger.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrActivityNotFound    = errors.New("activity not found")
	ErrRewardNotFound      = errors.New("reward not found")
	ErrInvalidReward       = errors.New("invalid coin amount")
	ErrOutOfStock          = errors.New("reward out of stock")
	ErrAlreadyCompleted    = errors.New("activity already completed")
	ErrLedgerBusy          = errors.New("another ledger operation is in progress")
)
