package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vposukhov/authvault/internal/common"
	"github.com/vposukhov/authvault/internal/dbx"
	"github.com/vposukhov/authvault/internal/logging"
	"github.com/vposukhov/authvault/internal/server/config"
	"github.com/vposukhov/authvault/internal/server/models"
	"github.com/vposukhov/authvault/internal/server/repositories/loginattempts"
	"github.com/vposukhov/authvault/internal/server/repositories/refreshtokens"
	"github.com/vposukhov/authvault/internal/server/repositories/resettokens"
	"github.com/vposukhov/authvault/internal/server/repositories/revocations"
	"github.com/vposukhov/authvault/internal/server/repositories/users"
)

// fakeClock lets tests move time forward deterministically.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeUsersRepo struct {
	byID   map[string]*models.User
	nextID int
	err    error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.User{}}
}

func (r *fakeUsersRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.byID {
		if u.Username == user.Username || (user.Email != "" && u.Email == user.Email) {
			return nil, common.ErrorAlreadyExists
		}
	}
	r.nextID++
	stored := *user
	stored.ID = fmt.Sprintf("u%d", r.nextID)
	stored.CreatedAt = time.Now()
	r.byID[stored.ID] = &stored
	return &stored, nil
}

func (r *fakeUsersRepo) GetByHandle(_ context.Context, handle string) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.byID {
		if u.Username == handle || (u.Email != "" && u.Email == handle) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUsersRepo) UpdatePasswordHash(_ context.Context, id string, passwordHash string) error {
	if r.err != nil {
		return r.err
	}
	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

type fakeRefreshRepo struct {
	byToken map[string]*models.RefreshToken
	nextID  int
	err     error
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{byToken: map[string]*models.RefreshToken{}}
}

func (r *fakeRefreshRepo) Create(_ context.Context, userID string, token string, expiresAt time.Time) error {
	if r.err != nil {
		return r.err
	}
	r.nextID++
	r.byToken[token] = &models.RefreshToken{
		ID:        fmt.Sprintf("rt%d", r.nextID),
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (r *fakeRefreshRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	if r.err != nil {
		return nil, r.err
	}
	rt, ok := r.byToken[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *rt
	return &copied, nil
}

func (r *fakeRefreshRepo) Revoke(_ context.Context, token string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	rt, ok := r.byToken[token]
	if !ok || rt.Revoked {
		return false, nil
	}
	rt.Revoked = true
	return true, nil
}

func (r *fakeRefreshRepo) RevokeAllForUser(_ context.Context, userID string) error {
	if r.err != nil {
		return r.err
	}
	for _, rt := range r.byToken {
		if rt.UserID == userID {
			rt.Revoked = true
		}
	}
	return nil
}

func (r *fakeRefreshRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	var n int64
	for token, rt := range r.byToken {
		if rt.ExpiresAt.Before(now) {
			delete(r.byToken, token)
			n++
		}
	}
	return n, nil
}

func (r *fakeRefreshRepo) liveTokensForUser(userID string) int {
	n := 0
	for _, rt := range r.byToken {
		if rt.UserID == userID && !rt.Revoked {
			n++
		}
	}
	return n
}

type fakeRevocationsRepo struct {
	byJTI map[string]time.Time
	err   error
}

func newFakeRevocationsRepo() *fakeRevocationsRepo {
	return &fakeRevocationsRepo{byJTI: map[string]time.Time{}}
}

func (r *fakeRevocationsRepo) Add(_ context.Context, jti string, expiresAt, _ time.Time) error {
	if r.err != nil {
		return r.err
	}
	if _, ok := r.byJTI[jti]; !ok {
		r.byJTI[jti] = expiresAt
	}
	return nil
}

func (r *fakeRevocationsRepo) Exists(_ context.Context, jti string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	_, ok := r.byJTI[jti]
	return ok, nil
}

func (r *fakeRevocationsRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	var n int64
	for jti, expiresAt := range r.byJTI {
		if expiresAt.Before(now) {
			delete(r.byJTI, jti)
			n++
		}
	}
	return n, nil
}

type fakeAttemptsRepo struct {
	attempts []*models.LoginAttempt
	err      error
}

func (r *fakeAttemptsRepo) Create(_ context.Context, attempt *models.LoginAttempt) error {
	if r.err != nil {
		return r.err
	}
	copied := *attempt
	r.attempts = append(r.attempts, &copied)
	return nil
}

func (r *fakeAttemptsRepo) FailedInWindow(_ context.Context, username string, from, to time.Time) (int, time.Time, error) {
	if r.err != nil {
		return 0, time.Time{}, r.err
	}
	count := 0
	var oldest time.Time
	for _, a := range r.attempts {
		if a.Username != username || a.Success {
			continue
		}
		if a.AttemptedAt.After(from) && !a.AttemptedAt.After(to) {
			count++
			if oldest.IsZero() || a.AttemptedAt.Before(oldest) {
				oldest = a.AttemptedAt
			}
		}
	}
	return count, oldest, nil
}

func (r *fakeAttemptsRepo) DeleteFailed(_ context.Context, username string) error {
	if r.err != nil {
		return r.err
	}
	kept := r.attempts[:0]
	for _, a := range r.attempts {
		if a.Username != username || a.Success {
			kept = append(kept, a)
		}
	}
	r.attempts = kept
	return nil
}

func (r *fakeAttemptsRepo) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	var n int64
	kept := r.attempts[:0]
	for _, a := range r.attempts {
		if a.AttemptedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, a)
	}
	r.attempts = kept
	return n, nil
}

type fakeResetRepo struct {
	byToken map[string]*models.PasswordResetToken
	nextID  int
	err     error
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{byToken: map[string]*models.PasswordResetToken{}}
}

func (r *fakeResetRepo) Create(_ context.Context, userID string, token string, expiresAt time.Time) error {
	if r.err != nil {
		return r.err
	}
	r.nextID++
	r.byToken[token] = &models.PasswordResetToken{
		ID:        fmt.Sprintf("pr%d", r.nextID),
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (r *fakeResetRepo) Find(_ context.Context, token string) (*models.PasswordResetToken, error) {
	if r.err != nil {
		return nil, r.err
	}
	rt, ok := r.byToken[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *rt
	return &copied, nil
}

func (r *fakeResetRepo) MarkUsed(_ context.Context, token string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	rt, ok := r.byToken[token]
	if !ok || rt.Used {
		return false, nil
	}
	rt.Used = true
	return true, nil
}

func (r *fakeResetRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	var n int64
	for token, rt := range r.byToken {
		if rt.ExpiresAt.Before(now) {
			delete(r.byToken, token)
			n++
		}
	}
	return n, nil
}

// fakeRepoManager hands out the same stateful fakes regardless of the DBTX,
// so code running inside dbx.WithTx sees the same data as code outside.
type fakeRepoManager struct {
	users    *fakeUsersRepo
	refresh  *fakeRefreshRepo
	revoked  *fakeRevocationsRepo
	attempts *fakeAttemptsRepo
	resets   *fakeResetRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:    newFakeUsersRepo(),
		refresh:  newFakeRefreshRepo(),
		revoked:  newFakeRevocationsRepo(),
		attempts: &fakeAttemptsRepo{},
		resets:   newFakeResetRepo(),
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository { return m.users }

func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.refresh }

func (m *fakeRepoManager) Revocations(dbx.DBTX) revocations.Repository { return m.revoked }

func (m *fakeRepoManager) LoginAttempts(dbx.DBTX) loginattempts.Repository { return m.attempts }

func (m *fakeRepoManager) ResetTokens(dbx.DBTX) resettokens.Repository { return m.resets }

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

// testDB opens an in-memory database so dbx.WithTx has real transactions to
// begin and commit; all data lives in the fakes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("error opening in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"
	return cfg
}
