// Package revocations provides a PostgreSQL-backed revocation registry for
// access tokens (the blacklist consulted on every validation).
package revocations

import (
	"context"
	"fmt"
	"time"

	"github.com/vposukhov/authvault/internal/dbx"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Add inserts a revocation entry keyed by the token fingerprint. Conflicts
// are ignored so a second logout with the same token succeeds quietly.
func (r *PostgresRepository) Add(ctx context.Context, jti string, expiresAt, revokedAt time.Time) error {
	query := `
		INSERT INTO token_revocations (jti, expires_at, revoked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (jti) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, jti, expiresAt, revokedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Exists reports whether the fingerprint is present in the registry.
func (r *PostgresRepository) Exists(ctx context.Context, jti string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM token_revocations WHERE jti = $1
		)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, jti).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// DeleteExpired purges entries whose natural token expiry has passed; the
// token is unusable by then regardless of the registry.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM token_revocations
		WHERE expires_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
