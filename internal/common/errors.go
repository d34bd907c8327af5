// Package common defines shared constants and sentinel errors used across
// AuthVault components. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
	ErrValidation = errors.New("validation error")

	// Credential errors. ErrInvalidCredentials deliberately covers both
	// "no such user" and "wrong password" so responses cannot be used to
	// enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountInactive    = errors.New("account is not active")
	ErrRateLimitExceeded  = errors.New("too many failed login attempts")

	// Token lifecycle errors.
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenRevoked     = errors.New("token revoked")
	ErrTokenAlreadyUsed = errors.New("token already used")
)

// RateLimitError carries the remaining lockout duration alongside the
// ErrRateLimitExceeded sentinel, so transports can expose a Retry-After.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many failed login attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

// Unwrap makes errors.Is(err, ErrRateLimitExceeded) hold for RateLimitError.
func (e *RateLimitError) Unwrap() error { return ErrRateLimitExceeded }
