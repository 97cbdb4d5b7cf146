// Package token issues and verifies the signed session tokens handed to
// clients after registration or login.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for missing, malformed or badly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token is well formed but past its expiry.
	ErrExpiredToken = errors.New("token has expired")
)

const (
	DefaultIssuer   = "taskly"
	DefaultAudience = "taskly-api"
)

// Config holds token signing configuration.
type Config struct {
	SecretKey string
	TTL       time.Duration
	Issuer    string
	Audience  string
}

// Claims carries the user identity in the standard subject claim.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID returns the identifier the token is bound to.
func (c *Claims) UserID() string {
	return c.Subject
}

// Manager signs and validates HS256 session tokens.
type Manager struct {
	config Config
	now    func() time.Time
}

// NewManager creates a Manager, filling in issuer and audience defaults.
func NewManager(config Config) *Manager {
	if config.Issuer == "" {
		config.Issuer = DefaultIssuer
	}
	if config.Audience == "" {
		config.Audience = DefaultAudience
	}
	return &Manager{
		config: config,
		now:    time.Now,
	}
}

// Generate issues a token bound to userID.
func (m *Manager) Generate(userID string) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{m.config.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.SecretKey))
}

// Validate parses tokenString and returns its claims if the signature,
// issuer, audience and time window all check out.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.config.SecretKey), nil
	},
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
