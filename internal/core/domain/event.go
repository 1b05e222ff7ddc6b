package domain

import "time"

// ChangeKind is the row operation reported by the store.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// ProfileChanged is a row-level change notification for one profile. Row is
// nil when the store did not ship the new row; consumers reload instead.
type ProfileChanged struct {
	UserID   string
	Kind     ChangeKind
	Row      *Profile
	Source   string
	Received time.Time
}
