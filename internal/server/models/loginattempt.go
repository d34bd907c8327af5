package models

import "time"

// LoginAttempt is one append-only row per authentication attempt. Failed
// rows inside the rate-limit window gate further attempts; rows older than
// the retention period are purged to bound growth.
type LoginAttempt struct {
	ID          int64
	Username    string
	UserID      string // empty when the handle did not resolve to a user
	Success     bool
	AttemptedAt time.Time
}
