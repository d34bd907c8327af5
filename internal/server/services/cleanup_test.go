package services

import (
	"context"
	"testing"
	"time"

	"github.com/vposukhov/authvault/internal/server/models"
)

func TestSweep_PurgesExpiredRows(t *testing.T) {
	rm := newFakeRepoManager()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	cleaner := NewCleaner(testDB(t), rm, testConfig(), clock, testLogger())
	ctx := context.Background()

	now := clock.Now()

	rm.refresh.Create(ctx, "u1", "stale", now.Add(-time.Minute))
	rm.refresh.Create(ctx, "u1", "live", now.Add(time.Hour))

	rm.resets.Create(ctx, "u1", "stale-reset", now.Add(-time.Minute))
	rm.resets.Create(ctx, "u1", "live-reset", now.Add(time.Hour))

	rm.revoked.Add(ctx, "stale-jti", now.Add(-time.Minute), now.Add(-time.Hour))
	rm.revoked.Add(ctx, "live-jti", now.Add(time.Hour), now)

	// Retention is 24h: the first attempt is past it, the second is not.
	rm.attempts.attempts = append(rm.attempts.attempts,
		&models.LoginAttempt{Username: "alice", AttemptedAt: now.Add(-25 * time.Hour)},
		&models.LoginAttempt{Username: "alice", AttemptedAt: now.Add(-time.Hour)},
	)

	cleaner.Sweep(ctx)

	if _, ok := rm.refresh.byToken["stale"]; ok {
		t.Fatalf("expected expired refresh token purged")
	}
	if _, ok := rm.refresh.byToken["live"]; !ok {
		t.Fatalf("expected live refresh token kept")
	}
	if _, ok := rm.resets.byToken["stale-reset"]; ok {
		t.Fatalf("expected expired reset token purged")
	}
	if _, ok := rm.resets.byToken["live-reset"]; !ok {
		t.Fatalf("expected live reset token kept")
	}
	if _, ok := rm.revoked.byJTI["stale-jti"]; ok {
		t.Fatalf("expected expired revocation entry purged")
	}
	if _, ok := rm.revoked.byJTI["live-jti"]; !ok {
		t.Fatalf("expected live revocation entry kept")
	}
	if len(rm.attempts.attempts) != 1 {
		t.Fatalf("expected one login attempt kept, got %d", len(rm.attempts.attempts))
	}
}

func TestSweep_ContinuesPastFailures(t *testing.T) {
	rm := newFakeRepoManager()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	cleaner := NewCleaner(testDB(t), rm, testConfig(), clock, testLogger())
	ctx := context.Background()

	now := clock.Now()
	rm.refresh.err = context.DeadlineExceeded
	rm.resets.Create(ctx, "u1", "stale-reset", now.Add(-time.Minute))

	// A failing purge must not stop the rest of the pass.
	cleaner.Sweep(ctx)

	if _, ok := rm.resets.byToken["stale-reset"]; ok {
		t.Fatalf("expected reset purge to run despite refresh purge failure")
	}
}
