// Package auth implements access-token signing and verification plus
// password hashing. Access tokens are self-contained HS256 JWTs; refresh
// tokens are opaque strings owned by the refreshtokens repository.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vposukhov/authvault/internal/common"
	"github.com/vposukhov/authvault/internal/server/models"
)

// TokenTypeAccess is the value of the "type" claim on access tokens. The
// discriminator prevents any other signed artifact from being presented
// where an access token is expected.
const TokenTypeAccess = "access"

// Claims is the access-token claim set. The JSON keys are a wire contract
// other systems depend on: {principal_id, handle, role, type, iat, exp}.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"principal_id"`
	Username  string `json:"handle"`
	Role      string `json:"role"`
	TokenType string `json:"type"`
}

// GenerateAccessToken signs a short-lived access token for user, valid for
// validity starting at now.
func GenerateAccessToken(user *models.User, secret []byte, validity time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role.String(),
		TokenType: TokenTypeAccess,
	})

	return token.SignedString(secret)
}

// ParseAccessToken verifies signature, expiry (relative to at) and the
// token-type claim. It returns common.ErrTokenExpired for stale tokens and
// common.ErrInvalidToken for everything else that fails verification.
// It performs no I/O; revocation checks are the caller's concern.
func ParseAccessToken(tokenString string, secret []byte, at time.Time) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc(secret),
		jwt.WithTimeFunc(func() time.Time { return at }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid || claims.TokenType != TokenTypeAccess {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// ParseAccessTokenAllowExpired verifies signature and token type but not
// expiry. Logout needs the claims of an already-expired token to decide
// that no blacklisting is required.
func ParseAccessTokenAllowExpired(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc(secret),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !token.Valid || claims.TokenType != TokenTypeAccess {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// Fingerprint returns the stable identifier of a signed token, used as the
// revocation-registry key.
func Fingerprint(tokenString string) string {
	sum := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(sum[:])
}

func keyFunc(secret []byte) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrInvalidToken
		}
		return secret, nil
	}
}
