package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	novelAuth "github.com/MrEthical07/novelAuth"
	"github.com/MrEthical07/novelAuth/store/sqlstore"
)

// fileConfig is the on-disk TOML layout. Durations are Go duration strings.
type fileConfig struct {
	Listen string `toml:"listen"`

	Database struct {
		Dialect string `toml:"dialect"`
		DSN     string `toml:"dsn"`
		Migrate bool   `toml:"migrate"`
	} `toml:"database"`

	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`

	Cookie struct {
		Name   string `toml:"name"`
		KeyHex string `toml:"key_hex"`
		Secure bool   `toml:"secure"`
		Issuer string `toml:"issuer"`
	} `toml:"cookie"`

	Log struct {
		Level       string `toml:"level"`
		Development bool   `toml:"development"`
	} `toml:"log"`

	Challenge struct {
		Enabled bool   `toml:"enabled"`
		Secret  string `toml:"secret"`
	} `toml:"challenge"`

	Lockout struct {
		Every int      `toml:"every"`
		Base  duration `toml:"base"`
		Max   duration `toml:"max"`
	} `toml:"lockout"`

	Session struct {
		IdleTimeout duration `toml:"idle_timeout"`
		Lifetime    duration `toml:"lifetime"`
	} `toml:"session"`

	Password struct {
		MinStrength int      `toml:"min_strength"`
		MaxAge      duration `toml:"max_age"`
	} `toml:"password"`

	IPThrottle struct {
		Enabled     bool     `toml:"enabled"`
		MaxFailures int      `toml:"max_failures"`
		Window      duration `toml:"window"`
	} `toml:"ip_throttle"`

	Audit struct {
		Enabled bool `toml:"enabled"`
	} `toml:"audit"`

	TrustProxy bool `toml:"trust_proxy"`
}

type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func defaultFileConfig() fileConfig {
	var c fileConfig
	c.Listen = ":8080"
	c.Database.Dialect = string(sqlstore.Postgres)
	c.Database.Migrate = true
	c.Redis.Addr = "127.0.0.1:6379"
	c.Cookie.Name = "novelauth_session"
	c.Cookie.Secure = true
	c.Cookie.Issuer = "novelauth"
	c.Log.Level = "info"
	c.Audit.Enabled = true
	return c
}

// loadConfig reads path (optional), then applies environment overrides.
func loadConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	applyEnv(&cfg, os.Getenv)
	return cfg, cfg.validate()
}

func applyEnv(cfg *fileConfig, getenv func(string) string) {
	if v := getenv("NOVELAUTH_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := getenv("NOVELAUTH_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := getenv("NOVELAUTH_COOKIE_KEY"); v != "" {
		cfg.Cookie.KeyHex = v
	}
	if v := getenv("RECAPTCHA_V2_SECRETKEY"); v != "" {
		cfg.Challenge.Secret = v
		cfg.Challenge.Enabled = true
	}
}

func (c fileConfig) validate() error {
	if c.Listen == "" {
		return errors.New("listen address required")
	}
	if _, err := sqlstore.ParseDialect(c.Database.Dialect); err != nil {
		return err
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn required (NOVELAUTH_DATABASE_DSN)")
	}
	if c.Redis.Addr == "" {
		return errors.New("redis addr required (NOVELAUTH_REDIS_ADDR)")
	}
	if _, err := c.cookieKey(); err != nil {
		return err
	}
	if c.Challenge.Enabled && c.Challenge.Secret == "" {
		return errors.New("challenge enabled without a secret (RECAPTCHA_V2_SECRETKEY)")
	}
	engineCfg := c.engineConfig()
	return engineCfg.Validate()
}

func (c fileConfig) cookieKey() ([]byte, error) {
	if c.Cookie.KeyHex == "" {
		return nil, errors.New("cookie key required (NOVELAUTH_COOKIE_KEY)")
	}
	key, err := hex.DecodeString(c.Cookie.KeyHex)
	if err != nil {
		return nil, fmt.Errorf("cookie key must be hex: %w", err)
	}
	return key, nil
}

// engineConfig overlays the file's non-zero settings on the engine defaults.
func (c fileConfig) engineConfig() novelAuth.Config {
	cfg := novelAuth.DefaultConfig()

	if c.Lockout.Every > 0 {
		cfg.Lockout.Every = c.Lockout.Every
	}
	if c.Lockout.Base.Duration > 0 {
		cfg.Lockout.Base = c.Lockout.Base.Duration
	}
	if c.Lockout.Max.Duration > 0 {
		cfg.Lockout.Max = c.Lockout.Max.Duration
	}
	if c.Session.IdleTimeout.Duration > 0 {
		cfg.Session.IdleTimeout = c.Session.IdleTimeout.Duration
	}
	if c.Session.Lifetime.Duration > 0 {
		cfg.Session.Lifetime = c.Session.Lifetime.Duration
	}
	if c.Password.MinStrength > 0 {
		cfg.Password.MinStrength = c.Password.MinStrength
	}
	if c.Password.MaxAge.Duration > 0 {
		cfg.Password.MaxAge = c.Password.MaxAge.Duration
	}

	cfg.Security.RequireChallenge = c.Challenge.Enabled
	cfg.Security.EnableIPThrottle = c.IPThrottle.Enabled
	if c.IPThrottle.MaxFailures > 0 {
		cfg.Security.MaxIPFailures = c.IPThrottle.MaxFailures
	}
	if c.IPThrottle.Window.Duration > 0 {
		cfg.Security.IPWindow = c.IPThrottle.Window.Duration
	}

	cfg.Audit.Enabled = c.Audit.Enabled
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}
