package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/vposukhov/authvault/internal/logging"
	"github.com/vposukhov/authvault/internal/server/config"
	"github.com/vposukhov/authvault/internal/server/repositories/repomanager"
	"github.com/vposukhov/authvault/internal/timex"
)

// Cleaner is the periodic maintenance job that purges rows made redundant
// by time: expired refresh and reset tokens, revocation entries past the
// blacklisted token's natural expiry, and login attempts older than the
// retention period. It never runs on the request path and every sweep is
// best effort.
type Cleaner struct {
	db               *sql.DB
	repomanager      repomanager.RepositoryManager
	clock            timex.Clock
	logger           logging.Logger
	interval         time.Duration
	attemptRetention time.Duration
}

// NewCleaner constructs a Cleaner using the retention settings from cfg.
func NewCleaner(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, clock timex.Clock, logger logging.Logger) *Cleaner {
	return &Cleaner{
		db:               db,
		repomanager:      m,
		clock:            clock,
		logger:           logger.With("module", "cleaner"),
		interval:         cfg.CleanupInterval,
		attemptRetention: cfg.AttemptRetention,
	}
}

// Run sweeps on a ticker until ctx is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep performs one cleanup pass. Each purge logs its own failure and the
// pass continues; a failed sweep is retried wholesale on the next tick.
func (c *Cleaner) Sweep(ctx context.Context) {
	now := c.clock.Now()

	if n, err := c.repomanager.RefreshTokens(c.db).DeleteExpired(ctx, now); err != nil {
		c.logger.Error(ctx, "failed to purge refresh tokens", "error", err)
	} else if n > 0 {
		c.logger.Info(ctx, "purged expired refresh tokens", "rows", n)
	}

	if n, err := c.repomanager.ResetTokens(c.db).DeleteExpired(ctx, now); err != nil {
		c.logger.Error(ctx, "failed to purge reset tokens", "error", err)
	} else if n > 0 {
		c.logger.Info(ctx, "purged expired reset tokens", "rows", n)
	}

	if n, err := c.repomanager.Revocations(c.db).DeleteExpired(ctx, now); err != nil {
		c.logger.Error(ctx, "failed to purge revocation entries", "error", err)
	} else if n > 0 {
		c.logger.Info(ctx, "purged expired revocation entries", "rows", n)
	}

	cutoff := now.Add(-c.attemptRetention)
	if n, err := c.repomanager.LoginAttempts(c.db).DeleteBefore(ctx, cutoff); err != nil {
		c.logger.Error(ctx, "failed to purge login attempts", "error", err)
	} else if n > 0 {
		c.logger.Info(ctx, "purged old login attempts", "rows", n)
	}
}
