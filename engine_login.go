package novelAuth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/novelAuth/account"
	internalflows "github.com/MrEthical07/novelAuth/internal/flows"
	"github.com/MrEthical07/novelAuth/session"
)

// Login authenticates req against the caller's current session.
//
// On success the stored session is replaced by one with a new id, a new CSRF
// token and the account's role and premium snapshots. The session passed in
// must not be reused. An unknown email and a wrong password both return
// [ErrInvalidCredentials]. A locked account returns a [*LockedError]; an IP
// over its failure budget returns a [*RateLimitedError].
func (e *Engine) Login(ctx context.Context, sess *session.Session, req LoginRequest) (*LoginResult, error) {
	if sess == nil {
		return nil, ErrUnauthenticated
	}
	res, err := internalflows.RunLogin(ctx, sess, internalflows.LoginRequest{
		Email:             req.Email,
		Password:          req.Password,
		CSRFToken:         req.CSRFToken,
		ChallengeResponse: req.ChallengeResponse,
	}, e.loginFlowDeps())
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Session:                  res.Session,
		UserID:                   res.Account.ID,
		PasswordRotationRequired: res.PasswordRotationRequired,
	}, nil
}

// AttemptCredential runs one credential attempt for the account with email,
// without touching any session.
//
// An accepted attempt returns a nil error. A rejected one returns
// [ErrInvalidCredentials] and counts a trial; a locked one returns a
// [*LockedError] and counts nothing. An unknown email is rejected after the
// same amount of hashing work as a wrong password.
func (e *Engine) AttemptCredential(ctx context.Context, email, secret string) (AttemptResult, error) {
	if !e.ready() {
		return AttemptResult{}, ErrEngineNotReady
	}
	email = strings.TrimSpace(email)
	if email == "" || secret == "" {
		return AttemptResult{}, ErrMissingFields
	}

	acct, err := e.accounts.LookupByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, account.ErrNotFound) {
			return AttemptResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		_, _ = e.hasher.Verify(secret, e.dummyHash)
		return AttemptResult{Outcome: OutcomeRejected}, ErrInvalidCredentials
	}

	res, err := internalflows.RunAttempt(ctx, acct, secret, e.attemptFlowDeps())
	if err != nil {
		return AttemptResult{}, err
	}

	out := AttemptResult{
		Outcome:       Outcome(res.Outcome),
		Remaining:     res.Remaining,
		LockTriggered: res.LockTriggered,
	}
	switch res.Outcome {
	case internalflows.OutcomeLocked:
		return out, &LockedError{Remaining: res.Remaining}
	case internalflows.OutcomeRejected:
		return out, ErrInvalidCredentials
	default:
		return out, nil
	}
}

func (e *Engine) loginFlowDeps() internalflows.LoginDeps {
	if !e.ready() {
		return internalflows.LoginDeps{Common: internalflows.Common{Errors: flowErrors()}}
	}

	deps := internalflows.LoginDeps{
		Common:           e.commonFlowDeps(),
		Attempt:          e.attemptFlowDeps(),
		Session:          e.sessionFlowDeps(),
		RequireChallenge: e.config.Security.RequireChallenge,
		MaxPasswordAge:   e.config.Password.MaxAge,
		DummyHash:        e.dummyHash,
		LookupByEmail:    e.accounts.LookupByEmail,
		CheckIP:          e.ipLimiter.Check,
		RecordIPFailure:  e.ipLimiter.RecordFailure,
		ResetIP:          e.ipLimiter.Reset,
		Metrics: internalflows.LoginMetrics{
			LoginSuccess:     int(MetricLoginSuccess),
			LoginFailure:     int(MetricLoginFailure),
			LoginLocked:      int(MetricLoginLocked),
			LoginRateLimited: int(MetricLoginRateLimited),
			ChallengeFailure: int(MetricChallengeFailure),
			CSRFRejected:     int(MetricCSRFRejected),
			ForcedRotation:   int(MetricForcedRotation),
		},
		Events: internalflows.LoginEvents{
			LoginSuccess:     auditEventLoginSuccess,
			LoginFailure:     auditEventLoginFailure,
			LoginLocked:      auditEventLoginLocked,
			LoginRateLimited: auditEventLoginRateLimited,
			ChallengeFailure: auditEventChallengeFailure,
			CSRFRejected:     auditEventCSRFRejected,
		},
	}
	if e.challenge != nil {
		deps.VerifyChallenge = e.challenge.Verify
	}
	return deps
}
