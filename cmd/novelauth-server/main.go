// Command novelauth-server serves the novelAuth HTTP API backed by a SQL
// credential store and Redis.
//
// Usage:
//
//	novelauth-server -config /etc/novelauth/server.toml
//
// Secrets are normally supplied through the environment:
// NOVELAUTH_DATABASE_DSN, NOVELAUTH_REDIS_ADDR, NOVELAUTH_COOKIE_KEY (hex, at
// least 32 bytes) and RECAPTCHA_V2_SECRETKEY.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	novelAuth "github.com/MrEthical07/novelAuth"
	"github.com/MrEthical07/novelAuth/captcha"
	"github.com/MrEthical07/novelAuth/httpapi"
	"github.com/MrEthical07/novelAuth/jwt"
	"github.com/MrEthical07/novelAuth/logging"
	"github.com/MrEthical07/novelAuth/metrics/export/prometheus"
	"github.com/MrEthical07/novelAuth/store/sqlstore"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "novelauth-server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	zl, err := newZap(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()
	log := logging.NewZapLogger(zl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------- credential store ----------
	dialect, _ := sqlstore.ParseDialect(cfg.Database.Dialect)
	db, err := sqlstore.Open(dialect, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	if cfg.Database.Migrate {
		if err := sqlstore.Migrate(ctx, db, dialect); err != nil {
			return err
		}
	}

	// ---------- redis ----------
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// ---------- engine ----------
	builder := novelAuth.New().
		WithConfig(cfg.engineConfig()).
		WithRedis(rdb).
		WithAccountStore(sqlstore.New(db, dialect)).
		WithLogger(log).
		WithAuditSink(novelAuth.NewLoggerSink(log))
	if cfg.Challenge.Enabled {
		verifier, err := captcha.NewRecaptcha(cfg.Challenge.Secret)
		if err != nil {
			return err
		}
		builder = builder.WithChallengeVerifier(verifier)
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("engine build: %w", err)
	}
	defer engine.Close()

	if h := engine.Health(ctx); !h.RedisAvailable {
		log.Warn(ctx, "redis unreachable at startup", "addr", cfg.Redis.Addr)
	}

	// ---------- http ----------
	key, _ := cfg.cookieKey()
	engineCfg := cfg.engineConfig()
	cookies, err := jwt.NewManager(jwt.Config{
		Key:    key,
		TTL:    engineCfg.Session.Lifetime,
		Issuer: cfg.Cookie.Issuer,
		Leeway: 30 * time.Second,
	})
	if err != nil {
		return err
	}

	api, err := httpapi.New(engine, cookies, httpapi.Config{
		CookieName:   cfg.Cookie.Name,
		SecureCookie: cfg.Cookie.Secure,
		CookieMaxAge: engineCfg.Session.Lifetime,
		TrustProxy:   cfg.TrustProxy,
	},
		httpapi.WithLogger(log),
		httpapi.WithMetricsHandler(prometheus.New(engine).Handler()),
	)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info(context.Background(), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

func newZap(cfg fileConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if cfg.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
