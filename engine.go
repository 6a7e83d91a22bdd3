package novelAuth

import (
	"context"
	"time"

	"github.com/MrEthical07/novelAuth/account"
	"github.com/MrEthical07/novelAuth/captcha"
	"github.com/MrEthical07/novelAuth/internal"
	internalaudit "github.com/MrEthical07/novelAuth/internal/audit"
	internalflows "github.com/MrEthical07/novelAuth/internal/flows"
	"github.com/MrEthical07/novelAuth/internal/rate"
	"github.com/MrEthical07/novelAuth/logging"
	"github.com/MrEthical07/novelAuth/password"
	"github.com/MrEthical07/novelAuth/session"
)

// Engine runs login, session, password and admin operations. It is safe for
// concurrent use once returned by [Builder.Build].
type Engine struct {
	config    Config
	accounts  account.Store
	sessions  *session.Store
	ipLimiter *rate.Limiter
	challenge captcha.Verifier
	hasher    *password.Hasher
	dummyHash string
	audit     *internalaudit.Dispatcher
	metrics   *Metrics
	log       logging.Logger
	now       func() time.Time
}

// Close drains and stops the audit dispatcher. It is safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of every counter and
// histogram. A nil or metrics-disabled engine returns empty maps.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// HealthStatus reports backend reachability.
type HealthStatus struct {
	RedisAvailable bool
	RedisLatency   time.Duration
}

// Health pings the session backend.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.sessions == nil {
		return HealthStatus{}
	}
	latency, err := e.sessions.Ping(ctx)
	return HealthStatus{
		RedisAvailable: err == nil,
		RedisLatency:   latency,
	}
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) clock() time.Time {
	if e == nil || e.now == nil {
		return time.Now()
	}
	return e.now()
}

func (e *Engine) ready() bool {
	return e != nil && e.accounts != nil && e.sessions != nil && e.hasher != nil
}

func flowErrors() internalflows.Errors {
	return internalflows.Errors{
		EngineNotReady:         ErrEngineNotReady,
		CSRFInvalid:            ErrCSRFInvalid,
		MissingFields:          ErrMissingFields,
		InvalidEmail:           ErrInvalidEmail,
		PasswordMismatch:       ErrPasswordMismatch,
		PasswordTooWeak:        ErrPasswordTooWeak,
		PasswordReuse:          ErrPasswordReuse,
		InvalidCredentials:     ErrInvalidCredentials,
		InvalidCurrentPassword: ErrInvalidCurrentPassword,
		AccountUnverified:      ErrAccountUnverified,
		ChallengeFailed:        ErrChallengeFailed,
		Unauthenticated:        ErrUnauthenticated,
		Unauthorized:           ErrUnauthorized,
		TargetNotEligible:      ErrTargetNotEligible,
		SessionExpired:         ErrSessionExpired,
		Integrity:              ErrIntegrity,
		StoreConflict:          ErrStoreConflict,
		StoreUnavailable:       ErrStoreUnavailable,
		SessionUnavailable:     ErrSessionUnavailable,
		ChallengeUnavailable:   ErrChallengeUnavailable,
		Locked: func(remaining time.Duration) error {
			return &LockedError{Remaining: remaining}
		},
		RateLimited: func(retryAfter time.Duration) error {
			return &RateLimitedError{RetryAfter: retryAfter}
		},
	}
}

func (e *Engine) commonFlowDeps() internalflows.Common {
	var log logging.Logger
	if e != nil {
		log = e.log
	}
	return internalflows.Common{
		Now:                 e.clock,
		ClientIPFromContext: clientIPFromContext,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Log:       log,
		Errors:    flowErrors(),
	}
}

func (e *Engine) attemptFlowDeps() internalflows.AttemptDeps {
	if !e.ready() {
		return internalflows.AttemptDeps{Common: internalflows.Common{Errors: flowErrors()}}
	}
	return internalflows.AttemptDeps{
		Common:           e.commonFlowDeps(),
		Policy:           e.config.lockoutPolicy(),
		CASRetries:       e.config.Security.CASRetries,
		Reload:           e.accounts.LookupByID,
		UpdateTrialState: e.accounts.UpdateTrialState,
		VerifyPassword:   e.hasher.Verify,
		ObserveLatency: func(d time.Duration) {
			if e.metrics != nil {
				e.metrics.Observe(MetricCredentialAttemptLatency, d)
			}
		},
		Metrics: internalflows.AttemptMetrics{
			LockoutTriggered: int(MetricLockoutTriggered),
		},
		Events: internalflows.AttemptEvents{
			LockoutTriggered: auditEventLockoutTriggered,
		},
	}
}

func (e *Engine) sessionFlowDeps() internalflows.SessionDeps {
	if !e.ready() {
		return internalflows.SessionDeps{Common: internalflows.Common{Errors: flowErrors()}}
	}
	return internalflows.SessionDeps{
		Common: e.commonFlowDeps(),
		Store:  e.sessions,
		NewSessionID: func() (string, error) {
			id, err := internal.NewSessionID()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
		ValidID: func(id string) bool {
			_, err := internal.ParseSessionID(id)
			return err == nil
		},
		IdleTimeout:    e.config.Session.IdleTimeout,
		Lifetime:       e.config.Session.Lifetime,
		ExpiredMessage: e.config.Messages.SessionExpired,
		Metrics: internalflows.SessionMetrics{
			SessionCreated: int(MetricSessionCreated),
			SessionExpired: int(MetricSessionExpired),
			Logout:         int(MetricLogout),
		},
		Events: internalflows.SessionEvents{
			SessionExpired: auditEventSessionExpired,
			Logout:         auditEventLogout,
		},
	}
}
