package refreshtokens

import (
	"context"
	"time"

	"github.com/vposukhov/authvault/internal/server/models"
)

// Repository persists opaque refresh tokens. Rotation and revocation flip
// the revoked flag; rows are removed only by retention cleanup.
type Repository interface {
	Create(ctx context.Context, userID string, token string, expiresAt time.Time) error
	Find(ctx context.Context, token string) (*models.RefreshToken, error)
	// Revoke flips revoked=true for the token and reports whether this call
	// performed the flip. A false result means the token was already revoked,
	// which callers treat as a lost rotation race.
	Revoke(ctx context.Context, token string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
