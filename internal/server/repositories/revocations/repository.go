package revocations

import (
	"context"
	"time"
)

// Repository is the revocation registry: fingerprints of access tokens that
// must be rejected before their natural expiry.
type Repository interface {
	// Add records a fingerprint. Adding the same fingerprint twice is a
	// no-op, so logout is idempotent.
	Add(ctx context.Context, jti string, expiresAt, revokedAt time.Time) error
	Exists(ctx context.Context, jti string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
