package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("security: invalid token")

// Claims is the identity slice this service trusts from the identity
// provider's bearer tokens.
type Claims struct {
	Role      string `json:"role,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 bearer tokens issued by the identity
// service. Login and registration live there; this side only verifies.
type TokenVerifier struct {
	Secret []byte
}

func (v TokenVerifier) Verify(raw string) (Claims, error) {
	if len(v.Secret) == 0 {
		return Claims{}, fmt.Errorf("security: verifier secret not configured")
	}
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return v.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// Sign issues a token; kept for tests and local tooling.
func (v TokenVerifier) Sign(claims Claims, ttl time.Duration) (string, error) {
	if len(v.Secret) == 0 {
		return "", fmt.Errorf("security: verifier secret not configured")
	}
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.Secret)
}
