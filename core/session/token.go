package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access token claims the store relies on.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenDecoder extracts Claims from access tokens. With a secret it verifies
// HS256 signatures; without one it only parses. The access cookie is client
// writable, so an unverified decoder must never serve production traffic.
type TokenDecoder struct {
	secret []byte
	parser *jwt.Parser
}

// NewTokenDecoder creates a decoder. An empty secret disables verification.
func NewTokenDecoder(secret string) *TokenDecoder {
	return &TokenDecoder{
		secret: []byte(secret),
		// Expiry is evaluated by the store against its own clock.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// Verifies reports whether signatures are checked.
func (d *TokenDecoder) Verifies() bool {
	return len(d.secret) > 0
}

// Decode parses token and requires a subject and an expiry.
func (d *TokenDecoder) Decode(token string) (*Claims, error) {
	claims := &Claims{}

	var err error
	if d.Verifies() {
		_, err = d.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
			return d.secret, nil
		})
	} else {
		_, _, err = d.parser.ParseUnverified(token, claims)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrMalformedToken)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing expiry", ErrMalformedToken)
	}
	return claims, nil
}

// SignToken mints an HS256 access token for user expiring at exp.
func SignToken(secret string, user User, exp time.Time) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
