package novelAuth

import (
	"errors"
	"time"

	"github.com/MrEthical07/novelAuth/internal/lockout"
	"github.com/MrEthical07/novelAuth/password"
)

// Config holds every tunable of the Engine. It is copied on
// [Builder.WithConfig] and treated as immutable after [Builder.Build].
type Config struct {
	Lockout  LockoutConfig
	Session  SessionConfig
	Password PasswordConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Messages MessagesConfig
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig controls brute-force escalation. Every Every-th consecutive
// failure locks the account for min(Base * 2^trials, Max).
type LockoutConfig struct {
	Every int
	Base  time.Duration
	Max   time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session storage and expiry.
type SessionConfig struct {
	RedisPrefix string
	// IdleTimeout is the inactivity threshold; a session idle for longer is
	// expired on its next request.
	IdleTimeout time.Duration
	// Lifetime bounds a session regardless of activity. It is also the Redis TTL.
	Lifetime time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id cost parameters and the rotation policy.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// MinStrength is the lowest accepted strength score on the 0-4 scale.
	MinStrength int
	// MaxAge forces rotation on login once a password is older than this.
	MaxAge time.Duration
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig groups the request-level protections.
type SecurityConfig struct {
	// RequireChallenge makes every login submission pass human verification.
	RequireChallenge bool

	EnableIPThrottle bool
	MaxIPFailures    int
	IPWindow         time.Duration

	// CASRetries bounds how often a credential attempt is re-evaluated after
	// losing a compare-and-swap race on the trial counter.
	CASRetries int
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
MESSAGES CONFIG
====================================
*/

// MessagesConfig holds the one-shot flash texts stored on the session.
type MessagesConfig struct {
	SessionExpired  string
	PasswordChanged string
	PremiumChanged  string
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults: lock every third failure,
// 300s inactivity, 24h session lifetime, 90-day password age.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	argon := password.DefaultArgon2Params()
	return Config{
		Lockout: LockoutConfig{
			Every: 3,
			Base:  5 * time.Second,
			Max:   24 * time.Hour,
		},
		Session: SessionConfig{
			RedisPrefix: "ns",
			IdleTimeout: 300 * time.Second,
			Lifetime:    24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:      argon.Memory,
			Time:        argon.Time,
			Parallelism: argon.Parallelism,
			SaltLength:  argon.SaltLength,
			KeyLength:   argon.KeyLength,
			MinStrength: 2,
			MaxAge:      90 * 24 * time.Hour,
		},
		Security: SecurityConfig{
			RequireChallenge: false,
			EnableIPThrottle: false,
			MaxIPFailures:    20,
			IPWindow:         15 * time.Minute,
			CASRetries:       3,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Messages: MessagesConfig{
			SessionExpired:  "Session expired. Please log in again.",
			PasswordChanged: "Password updated successfully!",
			PremiumChanged:  "User privilege updated successfully!",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	return out
}

func (c *Config) lockoutPolicy() lockout.Policy {
	return lockout.Policy{
		Every: c.Lockout.Every,
		Base:  c.Lockout.Base,
		Max:   c.Lockout.Max,
	}
}

func (c *Config) argon2Params() password.Argon2Params {
	return password.Argon2Params{
		Memory:      c.Password.Memory,
		Time:        c.Password.Time,
		Parallelism: c.Password.Parallelism,
		SaltLength:  c.Password.SaltLength,
		KeyLength:   c.Password.KeyLength,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations the Engine cannot run with.
func (c *Config) Validate() error {
	// Lockout
	if err := c.lockoutPolicy().Validate(); err != nil {
		return err
	}

	// Session
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.IdleTimeout <= 0 {
		return errors.New("Session IdleTimeout must be > 0")
	}
	if c.Session.Lifetime <= 0 {
		return errors.New("Session Lifetime must be > 0")
	}
	if c.Session.Lifetime < c.Session.IdleTimeout {
		return errors.New("Session Lifetime must be >= IdleTimeout")
	}

	// Password
	if err := c.argon2Params().Validate(); err != nil {
		return err
	}
	if c.Password.MinStrength < 0 || c.Password.MinStrength > 4 {
		return errors.New("Password MinStrength must be between 0 and 4")
	}
	if c.Password.MaxAge <= 0 {
		return errors.New("Password MaxAge must be > 0")
	}

	// Security
	if c.Security.CASRetries < 0 || c.Security.CASRetries > 16 {
		return errors.New("Security CASRetries must be between 0 and 16")
	}
	if c.Security.EnableIPThrottle {
		if c.Security.MaxIPFailures <= 0 {
			return errors.New("Security MaxIPFailures must be > 0 when IP throttle is enabled")
		}
		if c.Security.IPWindow <= 0 {
			return errors.New("Security IPWindow must be > 0 when IP throttle is enabled")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	// Messages
	if c.Messages.SessionExpired == "" {
		return errors.New("Messages SessionExpired must not be empty")
	}

	return nil
}
