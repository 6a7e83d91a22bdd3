package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minKeyBytes = 32

// ErrInvalidCookie is returned for any cookie value that does not parse,
// verify or validate. Callers treat it as "no session".
var ErrInvalidCookie = errors.New("invalid session cookie")

// Config controls the session cookie signature.
type Config struct {
	// Key is the HMAC-SHA256 secret; at least 32 bytes.
	Key []byte
	// TTL bounds the cookie lifetime; it should match the absolute session lifetime.
	TTL    time.Duration
	Issuer string
	Leeway time.Duration
}

// Manager signs session identifiers into cookie values and verifies them.
type Manager struct {
	config Config
}

// SessionClaims is the cookie payload. Only the opaque session id travels to
// the browser; every other session field stays server-side.
type SessionClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Key) < minKeyBytes {
		return nil, fmt.Errorf("cookie key must be at least %d bytes", minKeyBytes)
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	key := make([]byte, len(cfg.Key))
	copy(key, cfg.Key)
	cfg.Key = key
	return &Manager{config: cfg}, nil
}

// Sign returns the cookie value for sessionID.
func (m *Manager) Sign(sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("empty session id")
	}
	now := time.Now()
	claims := SessionClaims{
		SID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			Issuer:    m.config.Issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Key)
}

// Parse verifies value and returns the session id it carries.
func (m *Manager) Parse(value string) (string, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	token, err := jwt.NewParser(options...).ParseWithClaims(value, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Key, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCookie, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SID == "" {
		return "", ErrInvalidCookie
	}
	return claims.SID, nil
}
