package loginattempts

import (
	"context"
	"time"

	"github.com/vposukhov/authvault/internal/server/models"
)

// Repository stores the append-only login-attempt log backing the rate
// limiter.
type Repository interface {
	Create(ctx context.Context, attempt *models.LoginAttempt) error
	// FailedInWindow counts failed attempts for username with
	// attempted_at in (from, to] and returns the timestamp of the oldest
	// counted attempt (zero when count is 0).
	FailedInWindow(ctx context.Context, username string, from, to time.Time) (int, time.Time, error)
	DeleteFailed(ctx context.Context, username string) error
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
