package resettokens

import (
	"context"
	"time"

	"github.com/vposukhov/authvault/internal/server/models"
)

// Repository persists single-use password-reset tokens.
type Repository interface {
	Create(ctx context.Context, userID string, token string, expiresAt time.Time) error
	Find(ctx context.Context, token string) (*models.PasswordResetToken, error)
	// MarkUsed flips used=true and reports whether this call performed the
	// flip. A false result means a concurrent consumption won.
	MarkUsed(ctx context.Context, token string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
