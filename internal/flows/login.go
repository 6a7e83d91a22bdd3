package flows

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/MrEthical07/novelAuth/account"
	"github.com/MrEthical07/novelAuth/internal/csrf"
	"github.com/MrEthical07/novelAuth/internal/rate"
	"github.com/MrEthical07/novelAuth/session"
)

// LoginRequest is the flow-local login submission.
type LoginRequest struct {
	Email             string
	Password          string
	CSRFToken         string
	ChallengeResponse string
}

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	Session                  *session.Session
	Account                  account.Account
	PasswordRotationRequired bool
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LoginLocked      int
	LoginRateLimited int
	ChallengeFailure int
	CSRFRejected     int
	ForcedRotation   int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginLocked      string
	LoginRateLimited string
	ChallengeFailure string
	CSRFRejected     string
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	Common

	Attempt AttemptDeps
	Session SessionDeps

	RequireChallenge bool
	MaxPasswordAge   time.Duration
	// DummyHash is verified when no account matches the email, so the miss
	// path costs the same as a wrong password.
	DummyHash string

	LookupByEmail   func(ctx context.Context, email string) (account.Account, error)
	VerifyChallenge func(ctx context.Context, response, remoteIP string) (bool, error)

	CheckIP         func(ctx context.Context, ip string) (time.Duration, error)
	RecordIPFailure func(ctx context.Context, ip string) error
	ResetIP         func(ctx context.Context, ip string) error

	Metrics LoginMetrics
	Events  LoginEvents
}

func normalizeLoginDeps(deps *LoginDeps) error {
	deps.Common.normalize()
	if deps.CheckIP == nil {
		deps.CheckIP = func(context.Context, string) (time.Duration, error) { return 0, nil }
	}
	if deps.RecordIPFailure == nil {
		deps.RecordIPFailure = func(context.Context, string) error { return nil }
	}
	if deps.ResetIP == nil {
		deps.ResetIP = func(context.Context, string) error { return nil }
	}
	if deps.LookupByEmail == nil || deps.Attempt.VerifyPassword == nil {
		return deps.Errors.EngineNotReady
	}
	if deps.RequireChallenge && deps.VerifyChallenge == nil {
		return deps.Errors.EngineNotReady
	}
	return nil
}

// ValidEmail reports whether email is a bare RFC 5322 address.
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email && strings.Contains(email, "@")
}

// RunLogin executes the login flow against the caller's current session.
//
// Checks run in this order: CSRF token, required fields, email syntax,
// per-IP throttle, human verification, account lookup, credential attempt,
// verified flag. Only then is the session regenerated. An unknown email and a
// wrong password produce the same error, log line and audit code.
func RunLogin(ctx context.Context, sess *session.Session, req LoginRequest, deps LoginDeps) (*LoginResult, error) {
	if err := normalizeLoginDeps(&deps); err != nil {
		return nil, err
	}
	ip := deps.ClientIPFromContext(ctx)
	email := strings.TrimSpace(req.Email)

	if !csrf.Valid(sess, req.CSRFToken) {
		deps.MetricInc(deps.Metrics.CSRFRejected)
		deps.Log.Warn(ctx, "csrf token mismatch on login", "ip", ip)
		deps.EmitAudit(ctx, deps.Events.CSRFRejected, false, "", sessionIDOf(sess), deps.Errors.CSRFInvalid, func() map[string]string {
			return map[string]string{"action": "login"}
		})
		return nil, deps.Errors.CSRFInvalid
	}

	if email == "" || req.Password == "" || (deps.RequireChallenge && req.ChallengeResponse == "") {
		return nil, deps.Errors.MissingFields
	}
	if !ValidEmail(email) {
		return nil, deps.Errors.InvalidEmail
	}

	if retryAfter, err := deps.CheckIP(ctx, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			deps.MetricInc(deps.Metrics.LoginRateLimited)
			deps.Log.Warn(ctx, "login throttled for client", "ip", ip)
			rlErr := deps.rateLimitedErr(retryAfter)
			deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, "", sessionIDOf(sess), rlErr, func() map[string]string {
				return map[string]string{"email": email}
			})
			return nil, rlErr
		}
		return nil, fmt.Errorf("%w: %v", deps.Errors.SessionUnavailable, err)
	}

	if deps.RequireChallenge {
		ok, err := deps.VerifyChallenge(ctx, req.ChallengeResponse, ip)
		if err != nil {
			deps.Log.Error(ctx, "human verification unavailable", "ip", ip, "error", err)
			return nil, fmt.Errorf("%w: %v", deps.Errors.ChallengeUnavailable, err)
		}
		if !ok {
			deps.MetricInc(deps.Metrics.ChallengeFailure)
			deps.Log.Warn(ctx, "human verification failed", "ip", ip)
			deps.EmitAudit(ctx, deps.Events.ChallengeFailure, false, "", sessionIDOf(sess), deps.Errors.ChallengeFailed, func() map[string]string {
				return map[string]string{"email": email}
			})
			return nil, deps.Errors.ChallengeFailed
		}
	}

	acct, err := deps.LookupByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, account.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
		}
		_, _ = deps.Attempt.VerifyPassword(req.Password, deps.DummyHash)
		return nil, failLogin(ctx, sess, "", email, ip, &deps)
	}

	res, err := RunAttempt(ctx, acct, req.Password, deps.Attempt)
	if err != nil {
		return nil, err
	}
	switch res.Outcome {
	case OutcomeLocked:
		lockedErr := deps.lockedErr(res.Remaining)
		deps.MetricInc(deps.Metrics.LoginLocked)
		deps.Log.Info(ctx, "login refused while account locked", "account_id", acct.ID)
		deps.EmitAudit(ctx, deps.Events.LoginLocked, false, acct.ID, sessionIDOf(sess), lockedErr, nil)
		return nil, lockedErr
	case OutcomeRejected:
		return nil, failLogin(ctx, sess, acct.ID, email, ip, &deps)
	}
	acct = res.Account

	if !acct.Verified {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.Log.Info(ctx, "login attempt on unverified account", "account_id", acct.ID)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, acct.ID, sessionIDOf(sess), deps.Errors.AccountUnverified, nil)
		return nil, deps.Errors.AccountUnverified
	}

	if err := deps.ResetIP(ctx, ip); err != nil {
		deps.Log.Warn(ctx, "failed to reset login throttle", "ip", ip, "error", err)
	}

	rotate := deps.MaxPasswordAge > 0 && acct.PasswordAge(deps.Now()) > deps.MaxPasswordAge
	next, err := RunEstablish(ctx, sess, acct, rotate, deps.Session)
	if err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	if rotate {
		deps.MetricInc(deps.Metrics.ForcedRotation)
		deps.Log.Info(ctx, "password rotation required", "account_id", acct.ID)
	}
	deps.Log.Info(ctx, "user logged in", "account_id", acct.ID, "ip", ip)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, acct.ID, next.SessionID, nil, func() map[string]string {
		if !rotate {
			return nil
		}
		return map[string]string{"password_rotation_required": "true"}
	})

	return &LoginResult{
		Session:                  next,
		Account:                  acct,
		PasswordRotationRequired: rotate,
	}, nil
}

func failLogin(ctx context.Context, sess *session.Session, accountID, email, ip string, deps *LoginDeps) error {
	if err := deps.RecordIPFailure(ctx, ip); err != nil {
		deps.Log.Warn(ctx, "failed to record login failure for client", "ip", ip, "error", err)
	}
	deps.MetricInc(deps.Metrics.LoginFailure)
	deps.Log.Info(ctx, "failed login attempt", "email", email, "ip", ip)
	deps.EmitAudit(ctx, deps.Events.LoginFailure, false, accountID, sessionIDOf(sess), deps.Errors.InvalidCredentials, func() map[string]string {
		return map[string]string{"email": email}
	})
	return deps.Errors.InvalidCredentials
}

func sessionIDOf(sess *session.Session) string {
	if sess == nil {
		return ""
	}
	return sess.SessionID
}
