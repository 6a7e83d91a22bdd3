package novelAuth

import (
	"errors"
	"time"

	"github.com/MrEthical07/novelAuth/account"
	"github.com/MrEthical07/novelAuth/captcha"
	"github.com/MrEthical07/novelAuth/internal"
	internalaudit "github.com/MrEthical07/novelAuth/internal/audit"
	"github.com/MrEthical07/novelAuth/internal/rate"
	"github.com/MrEthical07/novelAuth/logging"
	"github.com/MrEthical07/novelAuth/password"
	"github.com/MrEthical07/novelAuth/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Configure it once during initialization;
// a Builder can be built only once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	accounts  account.Store
	challenge captcha.Verifier
	logger    logging.Logger
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing sessions and the per-IP throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountStore sets the credential store.
func (b *Builder) WithAccountStore(store account.Store) *Builder {
	b.accounts = store
	return b
}

// WithChallengeVerifier sets the human-verification collaborator. It is
// required when Security.RequireChallenge is enabled.
func (b *Builder) WithChallengeVerifier(v captcha.Verifier) *Builder {
	b.challenge = v
	return b
}

// WithLogger sets the structured logger. The default discards everything.
func (b *Builder) WithLogger(l logging.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink sets the destination for audit events. It has no effect
// unless Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the credential attempt latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
//
// Build fails when a required collaborator is missing or the configuration
// is invalid. A Builder builds once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.accounts == nil {
		return nil, errors.New("account store required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Security.RequireChallenge && b.challenge == nil {
		return nil, errors.New("RequireChallenge needs a challenge verifier")
	}

	logger := b.logger
	if logger == nil {
		logger = logging.Nop()
	}

	// -------- PASSWORD HASHER --------
	hasher, err := password.NewHasher(cfg.argon2Params())
	if err != nil {
		return nil, err
	}

	// Verified against on unknown-email logins so both paths do the same work.
	dummySecret, err := internal.NewCSRFToken()
	if err != nil {
		return nil, err
	}
	dummyHash, err := hasher.Hash(dummySecret)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:    cloneConfig(cfg),
		accounts:  b.accounts,
		sessions:  session.NewStore(b.redis, cfg.Session.RedisPrefix),
		challenge: b.challenge,
		hasher:    hasher,
		dummyHash: dummyHash,
		log:       logger.With("component", "novelauth"),
		now:       time.Now,
	}

	engine.ipLimiter = rate.New(b.redis, rate.Config{
		Enabled:     cfg.Security.EnableIPThrottle,
		MaxFailures: cfg.Security.MaxIPFailures,
		Window:      cfg.Security.IPWindow,
	})
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
