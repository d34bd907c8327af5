// Package services contains server-side business logic: credential
// verification, token issuance/rotation/revocation, brute-force rate
// limiting, and the password-reset flow.
package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/vposukhov/authvault/internal/common"
	"github.com/vposukhov/authvault/internal/logging"
	"github.com/vposukhov/authvault/internal/server/config"
	"github.com/vposukhov/authvault/internal/server/models"
	"github.com/vposukhov/authvault/internal/server/repositories/repomanager"
	"github.com/vposukhov/authvault/internal/timex"
)

// RateLimiter gates authentication attempts by counting recent failures per
// handle. Its count-then-compare is racy under concurrent bursts; that is
// acceptable, the limiter is a probabilistic defense, not a hard invariant.
type RateLimiter struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       timex.Clock
	logger      logging.Logger
	maxAttempts int
	window      time.Duration
}

// NewRateLimiter constructs a RateLimiter using the rate-limit settings
// from cfg.
func NewRateLimiter(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, clock timex.Clock, logger logging.Logger) *RateLimiter {
	return &RateLimiter{
		db:          db,
		repomanager: m,
		clock:       clock,
		logger:      logger.With("module", "rate_limiter"),
		maxAttempts: cfg.RateLimitMaxAttempts,
		window:      cfg.RateLimitWindow,
	}
}

// Check fails closed with a RateLimitError once the handle has accumulated
// maxAttempts failures inside the trailing window. The window boundary is
// exclusive-from/inclusive-to now; the count is taken at check time.
func (l *RateLimiter) Check(ctx context.Context, username string) error {
	now := l.clock.Now()
	from := now.Add(-l.window)

	repo := l.repomanager.LoginAttempts(l.db)
	count, oldest, err := repo.FailedInWindow(ctx, username, from, now)
	if err != nil {
		l.logger.Error(ctx, "failed to count login attempts", "error", err)
		return common.ErrorInternal
	}
	if count >= l.maxAttempts {
		retryAfter := oldest.Add(l.window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return &common.RateLimitError{RetryAfter: retryAfter}
	}
	return nil
}

// Record appends one attempt row. It is best effort: persistence errors are
// logged and swallowed so the login path never depends on attempt logging.
func (l *RateLimiter) Record(ctx context.Context, username string, success bool, userID string) {
	attempt := &models.LoginAttempt{
		Username:    username,
		UserID:      userID,
		Success:     success,
		AttemptedAt: l.clock.Now(),
	}
	if err := l.repomanager.LoginAttempts(l.db).Create(ctx, attempt); err != nil {
		l.logger.Error(ctx, "failed to record login attempt", "username", username, "error", err)
	}
}

// Reset deletes the handle's failed attempts after a successful login, so a
// genuine user is not locked out by attacker noise. Best effort.
func (l *RateLimiter) Reset(ctx context.Context, username string) {
	if err := l.repomanager.LoginAttempts(l.db).DeleteFailed(ctx, username); err != nil {
		l.logger.Error(ctx, "failed to reset rate limit", "username", username, "error", err)
	}
}
