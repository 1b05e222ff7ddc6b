package domain

import "time"

// Identity is an authentication principal managed by the gateway. Its ID is
// shared with the Profile row created for it.
type Identity struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
