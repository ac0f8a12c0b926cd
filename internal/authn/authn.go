package authn

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// The engine never authenticates credentials; this package only verifies
// that a bearer token was issued for some identity id and hands that id to
// the HTTP layer as the already-authenticated principal.

const issuer = "smena"

// ErrInvalidToken indicates the token failed validation.
var ErrInvalidToken = errors.New("authn: invalid token")

// Claims carries the authenticated identity id in the subject claim.
type Claims struct {
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 bearer tokens.
type Tokens struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

// NewTokens constructs a token service. secret must be non-empty.
func NewTokens(secret string, accessTTL time.Duration) (*Tokens, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("authn: secret is not configured")
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	return &Tokens{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// AccessTTL reports the configured token lifetime.
func (t *Tokens) AccessTTL() time.Duration { return t.accessTTL }

// Issue signs a token for the identity.
func (t *Tokens) Issue(identityID string) (string, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return "", errors.New("authn: identity id is required")
	}
	now := t.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   identityID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("authn: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and required claims and returns the subject.
func (t *Tokens) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.Issuer != issuer || strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	if claims.ExpiresAt == nil || t.now().After(claims.ExpiresAt.Time) {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
