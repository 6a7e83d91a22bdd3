package flows

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/novelAuth/account"
	"github.com/MrEthical07/novelAuth/internal/lockout"
)

// Outcome is the result of one credential attempt.
type Outcome uint8

const (
	// OutcomeAccepted means the secret matched and the trial state was reset.
	OutcomeAccepted Outcome = iota + 1
	// OutcomeRejected means the secret did not match and one trial was consumed.
	OutcomeRejected
	// OutcomeLocked means the account is inside its lockout window; nothing
	// was verified and nothing was written.
	OutcomeLocked
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// AttemptResult reports the outcome together with the account as persisted
// after the attempt.
type AttemptResult struct {
	Outcome       Outcome
	Account       account.Account
	Remaining     time.Duration
	LockTriggered bool
}

// AttemptMetrics carries metric IDs needed by the attempt flow.
type AttemptMetrics struct {
	LockoutTriggered int
}

// AttemptEvents carries audit event names used by the attempt flow.
type AttemptEvents struct {
	LockoutTriggered string
}

// AttemptDeps captures credential attempt dependencies.
type AttemptDeps struct {
	Common

	Policy     lockout.Policy
	CASRetries int

	Reload           func(ctx context.Context, id string) (account.Account, error)
	UpdateTrialState func(ctx context.Context, id string, expectedTrials, trials int, unlockAt *time.Time) (bool, error)
	VerifyPassword   func(secret, encoded string) (bool, error)
	ObserveLatency   func(time.Duration)

	Metrics AttemptMetrics
	Events  AttemptEvents
}

func normalizeAttemptDeps(deps *AttemptDeps) error {
	deps.Common.normalize()
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = func(time.Duration) {}
	}
	if deps.CASRetries < 0 {
		deps.CASRetries = 0
	}
	if deps.Reload == nil || deps.UpdateTrialState == nil || deps.VerifyPassword == nil {
		return deps.Errors.EngineNotReady
	}
	if deps.Policy.Validate() != nil {
		return deps.Errors.EngineNotReady
	}
	return nil
}

// RunAttempt gates, verifies and records one credential attempt against acct.
//
// The lockout gate runs before any hash comparison. The trial state write is a
// compare-and-swap on the trial counter; when another request moved the
// counter first, the account is reloaded and the whole attempt re-evaluated,
// at most CASRetries times.
func RunAttempt(ctx context.Context, acct account.Account, secret string, deps AttemptDeps) (AttemptResult, error) {
	if err := normalizeAttemptDeps(&deps); err != nil {
		return AttemptResult{}, err
	}
	if secret == "" {
		return AttemptResult{}, deps.Errors.MissingFields
	}

	start := time.Now()
	defer func() { deps.ObserveLatency(time.Since(start)) }()

	for try := 0; ; try++ {
		now := deps.Now()
		state := lockout.State{Trials: acct.TrialCount, UnlockAt: acct.UnlockAt}

		if locked, remaining := deps.Policy.Locked(state, now); locked {
			return AttemptResult{Outcome: OutcomeLocked, Account: acct, Remaining: remaining}, nil
		}

		ok, err := deps.VerifyPassword(secret, acct.PasswordHash)
		if err != nil {
			deps.Log.Error(ctx, "stored password hash is unusable", "account_id", acct.ID, "error", err)
			return AttemptResult{}, fmt.Errorf("%w: %v", deps.Errors.Integrity, err)
		}

		next := deps.Policy.Succeed()
		if !ok {
			next = deps.Policy.Fail(state, now)
		}

		swapped, err := deps.UpdateTrialState(ctx, acct.ID, state.Trials, next.Trials, next.UnlockAt)
		if err != nil {
			return AttemptResult{}, fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
		}
		if swapped {
			acct.TrialCount = next.Trials
			acct.UnlockAt = next.UnlockAt
			if ok {
				return AttemptResult{Outcome: OutcomeAccepted, Account: acct}, nil
			}
			result := AttemptResult{Outcome: OutcomeRejected, Account: acct}
			if deps.Policy.Triggered(next) {
				result.LockTriggered = true
				result.Remaining = next.UnlockAt.Sub(now)
				deps.MetricInc(deps.Metrics.LockoutTriggered)
				deps.Log.Warn(ctx, "account locked after repeated failures",
					"account_id", acct.ID,
					"locked_for", result.Remaining.String(),
				)
				deps.EmitAudit(ctx, deps.Events.LockoutTriggered, false, acct.ID, "", deps.lockedErr(result.Remaining), func() map[string]string {
					return map[string]string{
						"unlock_at": next.UnlockAt.UTC().Format(time.RFC3339),
					}
				})
			}
			return result, nil
		}

		if try >= deps.CASRetries {
			deps.Log.Warn(ctx, "trial state update lost every retry", "account_id", acct.ID)
			return AttemptResult{}, deps.Errors.StoreConflict
		}
		acct, err = deps.Reload(ctx, acct.ID)
		if err != nil {
			return AttemptResult{}, fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
		}
	}
}
