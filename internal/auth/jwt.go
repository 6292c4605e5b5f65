// Package auth provides password hashing, JWT issuance and the middleware
// that reads tokens back from requests.
//
// LOGIN FLOW:
//  1. POST /api/login verifies the username/password against the users store
//  2. If a signing secret is configured, the response carries a JWT whose
//     "sub" claim is the user ID
//  3. Clients send it back as "Authorization: Bearer <jwt>" (or a "token"
//     cookie); RequireAuth validates it on protected routes
//
// Tokens are stateless: validating one needs only the secret, no lookup.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "stockbook"

	// DefaultTokenTTL is used when no lifetime is configured.
	DefaultTokenTTL = 15 * time.Minute
)

// TokenService handles JWT creation and validation with an HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. A ttl of zero selects
// DefaultTokenTTL. The secret must be at least 16 characters.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload: the registered claims plus the username, which
// lets clients display who is signed in without another request.
type claims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Generate signs a token for the user with the service's lifetime.
func (s *TokenService) Generate(userID, username string) (string, error) {
	return s.GenerateWithDuration(userID, username, s.ttl)
}

// GenerateWithDuration signs a token with a custom lifetime.
// A negative duration yields an already-expired token (used in tests).
func (s *TokenService) GenerateWithDuration(userID, username string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a JWT string and returns its subject.
//
// Only HS256 is accepted (jwt.WithValidMethods), which blocks "alg: none"
// and algorithm-confusion tokens. Expiry and issuer are mandatory.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}
