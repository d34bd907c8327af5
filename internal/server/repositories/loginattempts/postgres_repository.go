// Package loginattempts provides a PostgreSQL-backed repository for the
// login-attempt log used by the rate limiter.
package loginattempts

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vposukhov/authvault/internal/dbx"
	"github.com/vposukhov/authvault/internal/server/models"
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

// Create appends one attempt row. UserID may be empty when the handle did
// not resolve to a user.
func (r *PostgresRepository) Create(ctx context.Context, attempt *models.LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (username, user_id, success, attempted_at)
		VALUES ($1, $2, $3, $4)
	`
	userID := sql.NullString{String: attempt.UserID, Valid: attempt.UserID != ""}
	if _, err := r.db.ExecContext(ctx, query, attempt.Username, userID, attempt.Success, attempt.AttemptedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// FailedInWindow counts failures in (from, to] and returns the oldest
// counted timestamp. The boundary is exclusive-from/inclusive-to.
func (r *PostgresRepository) FailedInWindow(ctx context.Context, username string, from, to time.Time) (int, time.Time, error) {
	query := `
		SELECT COUNT(*), MIN(attempted_at)
		FROM login_attempts
		WHERE username = $1 AND success = false AND attempted_at > $2 AND attempted_at <= $3
	`
	var count int
	var oldest sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, username, from, to).Scan(&count, &oldest); err != nil {
		return 0, time.Time{}, fmt.Errorf("db error: %w", err)
	}
	return count, oldest.Time, nil
}

// DeleteFailed removes the user's failed attempts, clearing any lockout.
func (r *PostgresRepository) DeleteFailed(ctx context.Context, username string) error {
	query := `
		DELETE FROM login_attempts
		WHERE username = $1 AND success = false
	`
	if _, err := r.db.ExecContext(ctx, query, username); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteBefore purges attempts older than cutoff and returns the row count.
func (r *PostgresRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM login_attempts
		WHERE attempted_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
