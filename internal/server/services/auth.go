package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/vposukhov/authvault/internal/common"
	"github.com/vposukhov/authvault/internal/dbx"
	"github.com/vposukhov/authvault/internal/logging"
	"github.com/vposukhov/authvault/internal/server/auth"
	"github.com/vposukhov/authvault/internal/server/config"
	"github.com/vposukhov/authvault/internal/server/models"
	"github.com/vposukhov/authvault/internal/server/repositories/repomanager"
	"github.com/vposukhov/authvault/internal/timex"
)

// TokenPair bundles a short-lived access token and a long-lived refresh
// token, plus the access token's lifetime in seconds for clients.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// AuthService is the single authentication core shared by every transport:
// - Authenticate: verify credentials under rate limiting and mint tokens
// - Refresh: rotate refresh tokens and mint new access tokens
// - ValidateAccess: the one source of truth for "is this token usable"
// - Logout: blacklist the access token and end the session line
// - RequestPasswordReset / ConsumeReset: single-use reset tokens
// - Register: create principals with hashed passwords
type AuthService struct {
	db                   *sql.DB
	repomanager          repomanager.RepositoryManager
	limiter              *RateLimiter
	clock                timex.Clock
	logger               logging.Logger
	jwtSecret            []byte
	accessTokenValidity  time.Duration
	refreshTokenValidity time.Duration
	resetTokenValidity   time.Duration
}

// NewAuthService constructs an AuthService using repositories and server
// config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, limiter *RateLimiter, cfg *config.Config, clock timex.Clock, logger logging.Logger) *AuthService {
	return &AuthService{
		db:                   db,
		repomanager:          m,
		limiter:              limiter,
		clock:                clock,
		logger:               logger.With("module", "auth_service"),
		jwtSecret:            []byte(cfg.SecretKey),
		accessTokenValidity:  cfg.AccessTokenValidity,
		refreshTokenValidity: cfg.RefreshTokenValidity,
		resetTokenValidity:   cfg.ResetTokenValidity,
	}
}

// Authenticate verifies the handle/password pair and returns a fresh token
// pair. The rate limiter runs first so a locked-out handle fails fast,
// before any password hashing. Absent users, wrong passwords, and inactive
// accounts all yield ErrInvalidCredentials so responses cannot be used to
// enumerate accounts.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*TokenPair, error) {
	if err := s.limiter.Check(ctx, username); err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByHandle(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.limiter.Record(ctx, username, false, "")
			return nil, common.ErrInvalidCredentials
		}
		return nil, common.ErrorInternal
	}

	if user.Status != models.StatusActive {
		s.limiter.Record(ctx, username, false, user.ID)
		return nil, common.ErrInvalidCredentials
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		s.limiter.Record(ctx, username, false, user.ID)
		return nil, common.ErrInvalidCredentials
	}

	s.limiter.Record(ctx, username, true, user.ID)
	s.limiter.Reset(ctx, username)

	return s.generateTokenPair(ctx, user, s.db)
}

// Refresh validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. A refresh token is single-use: the revoke and
// the successor insert commit together, so of two concurrent refreshes with
// the same token at most one succeeds. Replay of an already-rotated token
// fails with ErrTokenRevoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	now := s.clock.Now()

	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, common.ErrorInternal
	}
	if token.Revoked {
		return nil, common.ErrTokenRevoked
	}
	if token.ExpiresAt.Before(now) {
		return nil, common.ErrTokenExpired
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, common.ErrorInternal
	}
	if user.Status != models.StatusActive {
		return nil, common.ErrAccountInactive
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rotated, err := s.repomanager.RefreshTokens(tx).Revoke(ctx, refreshToken)
		if err != nil {
			return err
		}
		if !rotated {
			// A concurrent refresh already rotated this token.
			return common.ErrTokenRevoked
		}
		pair, err = s.generateTokenPair(ctx, user, tx)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrTokenRevoked) {
			return nil, common.ErrTokenRevoked
		}
		s.logger.Error(ctx, "token rotation failed", "error", err)
		return nil, common.ErrorInternal
	}
	return pair, nil
}

// ValidateAccess checks signature and expiry first (cheap, no I/O), then
// consults the revocation registry. Only after both pass may callers trust
// the returned claims. Validity is never cached across requests; every call
// re-checks the registry.
func (s *AuthService) ValidateAccess(ctx context.Context, accessToken string) (*auth.Claims, error) {
	claims, err := auth.ParseAccessToken(accessToken, s.jwtSecret, s.clock.Now())
	if err != nil {
		return nil, err
	}

	revoked, err := s.repomanager.Revocations(s.db).Exists(ctx, auth.Fingerprint(accessToken))
	if err != nil {
		s.logger.Error(ctx, "revocation lookup failed", "error", err)
		return nil, common.ErrorInternal
	}
	if revoked {
		return nil, common.ErrTokenRevoked
	}
	return claims, nil
}

// Logout blacklists the access token until its natural expiry and revokes
// every live refresh token of the principal, ending the session line. An
// already-expired token needs no blacklisting and logs out successfully.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	claims, err := auth.ParseAccessTokenAllowExpired(accessToken, s.jwtSecret)
	if err != nil {
		return common.ErrInvalidToken
	}

	now := s.clock.Now()
	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(now) {
		return nil
	}

	jti := auth.Fingerprint(accessToken)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Revocations(tx).Add(ctx, jti, claims.ExpiresAt.Time, now); err != nil {
			return err
		}
		return s.repomanager.RefreshTokens(tx).RevokeAllForUser(ctx, claims.UserID)
	})
	if err != nil {
		s.logger.Error(ctx, "logout failed", "error", err)
		return common.ErrorInternal
	}
	return nil
}

// RequestPasswordReset mints a single-use reset token for the handle. It
// returns nil whether or not the principal exists, so the response cannot
// be used to probe for accounts. Delivery is out of band; in development
// the token is written to the log.
func (s *AuthService) RequestPasswordReset(ctx context.Context, handle string) error {
	user, err := s.repomanager.Users(s.db).GetByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return common.ErrorInternal
	}

	token := uuid.NewString()
	expiresAt := s.clock.Now().Add(s.resetTokenValidity)
	if err := s.repomanager.ResetTokens(s.db).Create(ctx, user.ID, token, expiresAt); err != nil {
		s.logger.Error(ctx, "failed to store reset token", "error", err)
		return common.ErrorInternal
	}

	s.logger.Info(ctx, "password reset requested",
		"username", user.Username, "reset_token", token, "expires_at", expiresAt)
	return nil
}

// ConsumeReset exchanges a reset token for a new password exactly once. The
// used flag, the password hash, and the revocation of all refresh tokens
// commit in one transaction: a password reset must invalidate existing
// sessions, and two concurrent uses of the same token cannot both succeed.
func (s *AuthService) ConsumeReset(ctx context.Context, resetToken, newPassword string) error {
	if len(newPassword) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", common.ErrValidation)
	}

	rt, err := s.repomanager.ResetTokens(s.db).Find(ctx, resetToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidToken
		}
		return common.ErrorInternal
	}
	if rt.Used {
		return common.ErrTokenAlreadyUsed
	}
	if rt.ExpiresAt.Before(s.clock.Now()) {
		return common.ErrTokenExpired
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return common.ErrorInternal
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		used, err := s.repomanager.ResetTokens(tx).MarkUsed(ctx, resetToken)
		if err != nil {
			return err
		}
		if !used {
			// A concurrent consumption won the conditional update.
			return common.ErrTokenAlreadyUsed
		}
		if err := s.repomanager.Users(tx).UpdatePasswordHash(ctx, rt.UserID, hash); err != nil {
			return err
		}
		return s.repomanager.RefreshTokens(tx).RevokeAllForUser(ctx, rt.UserID)
	})
	if err != nil {
		if errors.Is(err, common.ErrTokenAlreadyUsed) {
			return common.ErrTokenAlreadyUsed
		}
		s.logger.Error(ctx, "password reset failed", "error", err)
		return common.ErrorInternal
	}
	return nil
}

// Register creates a new active user with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, username, email, password string, role models.Role) (*models.User, error) {
	if len(username) < 3 {
		return nil, fmt.Errorf("%w: username must be at least 3 characters", common.ErrValidation)
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", common.ErrValidation)
	}
	if !emailPattern.MatchString(email) {
		return nil, fmt.Errorf("%w: valid email address is required", common.ErrValidation)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: invalid role %q", common.ErrValidation, role)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       models.StatusActive,
	}
	created, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, fmt.Errorf("%w: username or email already registered", common.ErrValidation)
		}
		return nil, common.ErrorInternal
	}
	return created, nil
}

// generateTokenPair mints an access token and stores a new refresh token
// through the given handle (plain DB or transaction).
func (s *AuthService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	now := s.clock.Now()

	access, err := auth.GenerateAccessToken(user, s.jwtSecret, s.accessTokenValidity, now)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, user.ID, refresh, now.Add(s.refreshTokenValidity)); err != nil {
		s.logger.Error(ctx, "failed to store refresh token", "error", err)
		return nil, common.ErrorInternal
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTokenValidity.Seconds()),
	}, nil
}
