package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/novelAuth/logging"
)

// Errors carries host-level sentinel errors shared by every flow. The root
// engine fills it once so flows never import the public package.
type Errors struct {
	EngineNotReady         error
	CSRFInvalid            error
	MissingFields          error
	InvalidEmail           error
	PasswordMismatch       error
	PasswordTooWeak        error
	PasswordReuse          error
	InvalidCredentials     error
	InvalidCurrentPassword error
	AccountUnverified      error
	ChallengeFailed        error
	Unauthenticated        error
	Unauthorized           error
	TargetNotEligible      error
	SessionExpired         error
	Integrity              error
	StoreConflict          error
	StoreUnavailable       error
	SessionUnavailable     error
	ChallengeUnavailable   error

	// Locked builds the error returned while an account is inside its
	// lockout window.
	Locked func(remaining time.Duration) error
	// RateLimited builds the error returned when the per-IP throttle trips.
	RateLimited func(retryAfter time.Duration) error
}

// Common groups the clock, request context accessors and observability
// hooks every flow uses.
type Common struct {
	Now                 func() time.Time
	ClientIPFromContext func(context.Context) string
	MetricInc           func(int)
	EmitAudit           func(ctx context.Context, event string, success bool, userID, sessionID string, err error, metadata func() map[string]string)
	Log                 logging.Logger

	Errors Errors
}

func (c *Common) normalize() {
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.ClientIPFromContext == nil {
		c.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if c.MetricInc == nil {
		c.MetricInc = func(int) {}
	}
	if c.EmitAudit == nil {
		c.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if c.Log == nil {
		c.Log = logging.Nop()
	}
}

func (c *Common) lockedErr(remaining time.Duration) error {
	if c.Errors.Locked == nil {
		return c.Errors.EngineNotReady
	}
	return c.Errors.Locked(remaining)
}

func (c *Common) rateLimitedErr(retryAfter time.Duration) error {
	if c.Errors.RateLimited == nil {
		return c.Errors.EngineNotReady
	}
	return c.Errors.RateLimited(retryAfter)
}
