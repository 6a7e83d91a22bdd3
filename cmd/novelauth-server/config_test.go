package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	err := os.WriteFile(path, []byte(`
listen = ":9090"

[database]
dialect = "sqlite"
dsn = "file:auth.db"

[lockout]
every = 5
base = "10s"

[session]
idle_timeout = "10m"

[ip_throttle]
enabled = true
max_failures = 50
`), 0o600)
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("NOVELAUTH_COOKIE_KEY", validKey)
	t.Setenv("NOVELAUTH_REDIS_ADDR", "redis:6380")
	t.Setenv("NOVELAUTH_DATABASE_DSN", "")
	t.Setenv("RECAPTCHA_V2_SECRETKEY", "")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Listen != ":9090" || cfg.Redis.Addr != "redis:6380" || cfg.Database.DSN != "file:auth.db" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	ec := cfg.engineConfig()
	if ec.Lockout.Every != 5 || ec.Lockout.Base != 10*time.Second || ec.Lockout.Max != 24*time.Hour {
		t.Fatalf("unexpected lockout: %+v", ec.Lockout)
	}
	if ec.Session.IdleTimeout != 10*time.Minute || !ec.Security.EnableIPThrottle || ec.Security.MaxIPFailures != 50 {
		t.Fatalf("unexpected engine config: %+v", ec)
	}
}

func TestApplyEnvEnablesChallenge(t *testing.T) {
	cfg := defaultFileConfig()
	env := map[string]string{
		"NOVELAUTH_DATABASE_DSN": "postgres://auth@db/auth",
		"NOVELAUTH_COOKIE_KEY":   validKey,
		"RECAPTCHA_V2_SECRETKEY": "s3cret",
	}
	applyEnv(&cfg, func(k string) string { return env[k] })

	if !cfg.Challenge.Enabled || cfg.Challenge.Secret != "s3cret" {
		t.Fatalf("challenge not enabled from env: %+v", cfg.Challenge)
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !cfg.engineConfig().Security.RequireChallenge {
		t.Fatal("engine config should require the challenge")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*fileConfig)
		wantErr string
	}{
		{"missing dsn", func(c *fileConfig) { c.Database.DSN = "" }, "dsn"},
		{"bad dialect", func(c *fileConfig) { c.Database.Dialect = "mysql" }, "dialect"},
		{"missing cookie key", func(c *fileConfig) { c.Cookie.KeyHex = "" }, "cookie key"},
		{"non-hex cookie key", func(c *fileConfig) { c.Cookie.KeyHex = "zz" }, "hex"},
		{"challenge without secret", func(c *fileConfig) { c.Challenge.Enabled = true }, "challenge"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultFileConfig()
			cfg.Database.DSN = "postgres://auth@db/auth"
			cfg.Cookie.KeyHex = validKey
			tt.mutate(&cfg)
			err := cfg.validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDurationUnmarshal(t *testing.T) {
	var d duration
	if err := d.UnmarshalText([]byte("90s")); err != nil || d.Duration != 90*time.Second {
		t.Fatalf("got %v, %v", d.Duration, err)
	}
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Fatal("expected parse error")
	}
}
