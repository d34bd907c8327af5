package models

import "time"

// RefreshToken is an opaque, unguessable string bound to exactly one user.
// It carries no claims; its meaning lives entirely in this row. The row is
// mutated only to flip Revoked to true (rotation, logout, password change)
// and deleted only by retention cleanup.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}
