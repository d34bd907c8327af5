package models

import "time"

// PasswordResetToken is a single-use, time-boxed token that authorizes one
// password replacement. Used=true is terminal: a reset token must never be
// accepted twice.
type PasswordResetToken struct {
	ID        string
	Token     string
	UserID    string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}
