// Package token issues and verifies the signed session tokens handed out on
// signup and login. Tokens are HS256 JWTs and are never stored server side:
// validity depends only on the signature, the signing secret and the clock.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = 24 * time.Hour

var (
	// ErrInvalidToken wraps every verification failure.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpired is additionally wrapped when the token is past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrEmptySecret is returned by NewManager without a signing key.
	ErrEmptySecret = errors.New("token secret must not be empty")
)

// Identity is the user identity carried by a token
type Identity struct {
	UserID string
	Email  string
}

// Claims is the token payload: the identity plus the standard registered claims
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Identity returns the identity portion of the claims
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email}
}

// Manager signs and verifies tokens with a process-wide secret
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a token manager. A non-positive ttl falls back to DefaultTTL.
func NewManager(secret []byte, ttl time.Duration, opts ...Option) (*Manager, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	m := &Manager{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL returns the validity window of issued tokens
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new token for the identity
func (m *Manager) Issue(id Identity) (string, error) {
	now := m.now()

	claims := Claims{
		UserID: id.UserID,
		Email:  id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry and returns the embedded claims
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrExpired)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing userId", ErrInvalidToken)
	}

	return claims, nil
}

// Decode parses the payload without checking the signature or expiry.
// It is meant for introspection and must never be used to authorize a request.
func Decode(tokenString string) (*Claims, bool) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// Decode is a convenience wrapper around the package-level Decode
func (m *Manager) Decode(tokenString string) (*Claims, bool) {
	return Decode(tokenString)
}
