package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sevasetu/backoffice/internal/models"
)

// Verification failures. Expiry and signature problems are kept apart so the
// gate can log them distinctly; both map to the same 401 externally.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrTokenMalformed = errors.New("token malformed")
)

// Claims carried by every access token.
type Claims struct {
	jwt.RegisteredClaims
	Role models.Role `json:"role"`
}

// TokenManager issues and verifies signed JWTs for authenticated users.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenManager creates a manager with the provided secret, issuer, and lifetime.
func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Generate issues a signed HS256 token for the user.
func (t *TokenManager) Generate(user models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Role: user.Role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify checks signature and expiry and returns the user ID the token was
// minted for. Failures unwrap to ErrTokenExpired, ErrTokenMalformed, or
// ErrTokenInvalid.
func (t *TokenManager) Verify(tokenString string) (int64, *Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", tok.Method.Alg())
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return 0, nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return 0, nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		default:
			return 0, nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	}
	if !token.Valid {
		return 0, nil, ErrTokenInvalid
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: bad subject %q", ErrTokenMalformed, claims.Subject)
	}
	return userID, claims, nil
}
