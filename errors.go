package novelAuth

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrCSRFInvalid is returned when a state-changing request carries a
	// missing or mismatched anti-forgery token.
	ErrCSRFInvalid = errors.New("csrf token invalid")
	// ErrMissingFields is returned when a required form field is empty.
	ErrMissingFields = errors.New("required fields missing")
	// ErrInvalidEmail is returned when the login email is not a bare address.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrPasswordMismatch is returned when the new password and its
	// confirmation differ.
	ErrPasswordMismatch = errors.New("password confirmation mismatch")
	// ErrPasswordTooWeak is returned when the new password scores below the
	// configured minimum strength.
	ErrPasswordTooWeak = errors.New("password too weak")
	// ErrPasswordReuse is returned when the new password equals the current one.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrInvalidCredentials is returned for a wrong password and for an unknown
	// email alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidCurrentPassword is returned by a password change whose current
	// password failed verification.
	ErrInvalidCurrentPassword = errors.New("invalid current password")
	// ErrAccountUnverified is returned when the password verified but the
	// account has not confirmed its email.
	ErrAccountUnverified = errors.New("account unverified")
	// ErrAccountLocked is the sentinel every [LockedError] unwraps to.
	ErrAccountLocked = errors.New("account locked")
	// ErrLoginRateLimited is the sentinel every [RateLimitedError] unwraps to.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrChallengeFailed is returned when human verification rejects the
	// submitted challenge response.
	ErrChallengeFailed = errors.New("human verification failed")
	// ErrUnauthenticated is returned when an operation needs a bound session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnauthorized is returned when the session's role may not perform the
	// operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTargetNotEligible is returned when a privilege change targets a
	// missing account or one that is not a member.
	ErrTargetNotEligible = errors.New("target account not eligible")
	// ErrSessionExpired is returned by Resume after an inactivity or lifetime
	// timeout; the accompanying session is fresh and usable.
	ErrSessionExpired = errors.New("session expired")
	// ErrIntegrity is returned when stored credential material is unusable.
	ErrIntegrity = errors.New("authentication error")
	// ErrStoreConflict is returned when a compare-and-swap on account state
	// kept losing to concurrent writers.
	ErrStoreConflict = errors.New("account state changed concurrently")
	// ErrStoreUnavailable wraps credential store failures.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrSessionUnavailable wraps session backend failures.
	ErrSessionUnavailable = errors.New("session backend unavailable")
	// ErrChallengeUnavailable wraps human verification transport failures.
	ErrChallengeUnavailable = errors.New("human verification unavailable")
	// ErrEngineNotReady is returned by an Engine that was not built by [Builder.Build].
	ErrEngineNotReady = errors.New("engine not initialized")
)

// LockedError reports an account inside its lockout window. It carries only
// the remaining wait, never the trial count.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return "account locked for " + e.Remaining.Round(time.Second).String()
}

func (e *LockedError) Unwrap() error { return ErrAccountLocked }

// RateLimitedError reports a client address over its failed-login budget.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return "login rate limited for " + e.RetryAfter.Round(time.Second).String()
}

func (e *RateLimitedError) Unwrap() error { return ErrLoginRateLimited }

// ErrorKind is the closed classification callers branch on.
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	// KindValidation covers missing or malformed input.
	KindValidation
	// KindAuthorization covers CSRF failures, role mismatches and missing
	// authentication.
	KindAuthorization
	// KindLocked covers lockout windows and the per-IP throttle.
	KindLocked
	// KindCredential covers wrong passwords, unknown accounts and failed
	// human verification.
	KindCredential
	// KindIntegrity covers unusable stored credential material.
	KindIntegrity
	// KindUnavailable covers backend failures and lost compare-and-swap races.
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindLocked:
		return "locked"
	case KindCredential:
		return "credential"
	case KindIntegrity:
		return "integrity"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// KindOf classifies err. Unknown errors are treated as integrity failures so
// nothing unexpected leaks detail to a caller.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrMissingFields),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrPasswordMismatch),
		errors.Is(err, ErrPasswordTooWeak),
		errors.Is(err, ErrPasswordReuse),
		errors.Is(err, ErrTargetNotEligible),
		errors.Is(err, ErrAccountUnverified):
		return KindValidation
	case errors.Is(err, ErrCSRFInvalid),
		errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrSessionExpired):
		return KindAuthorization
	case errors.Is(err, ErrAccountLocked),
		errors.Is(err, ErrLoginRateLimited):
		return KindLocked
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidCurrentPassword),
		errors.Is(err, ErrChallengeFailed):
		return KindCredential
	case errors.Is(err, ErrStoreConflict),
		errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrSessionUnavailable),
		errors.Is(err, ErrChallengeUnavailable),
		errors.Is(err, ErrEngineNotReady):
		return KindUnavailable
	default:
		return KindIntegrity
	}
}

// PublicMessage returns the text safe to show an end user for err. It never
// includes internal detail.
func PublicMessage(err error) string {
	var locked *LockedError
	if errors.As(err, &locked) {
		return "Too many failed attempts. Try again in " + waitText(locked.Remaining) + "."
	}
	var limited *RateLimitedError
	if errors.As(err, &limited) {
		return "Too many failed attempts. Try again in " + waitText(limited.RetryAfter) + "."
	}

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingFields):
		return "All fields are required!"
	case errors.Is(err, ErrInvalidEmail):
		return "Invalid email format!"
	case errors.Is(err, ErrChallengeFailed):
		return "reCAPTCHA verification failed! Please try again."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password!"
	case errors.Is(err, ErrAccountUnverified):
		return "Please verify your email address to activate your account."
	case errors.Is(err, ErrSessionExpired):
		return "Session expired. Please log in again."
	case errors.Is(err, ErrPasswordMismatch):
		return "Passwords do not match."
	case errors.Is(err, ErrInvalidCurrentPassword):
		return "Incorrect current password."
	case errors.Is(err, ErrPasswordTooWeak):
		return "Password is too weak. Please choose a stronger password."
	case errors.Is(err, ErrPasswordReuse):
		return "You can't use the same password."
	case errors.Is(err, ErrUnauthenticated):
		return "You must log in to access the dashboard."
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrTargetNotEligible):
		return "Unauthorized action."
	case errors.Is(err, ErrCSRFInvalid):
		return "Something went wrong"
	case KindOf(err) == KindUnavailable:
		return "Service temporarily unavailable. Please try again."
	default:
		return "Authentication error."
	}
}

// waitText renders d the way the lockout message shows it, e.g. "40 seconds"
// or "5 minutes 20 seconds".
func waitText(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	h, m, s := secs/3600, (secs%3600)/60, secs%60

	var parts []string
	add := func(n int64, unit string) {
		if n == 0 {
			return
		}
		if n != 1 {
			unit += "s"
		}
		parts = append(parts, strconv.FormatInt(n, 10)+" "+unit)
	}
	add(h, "hour")
	add(m, "minute")
	add(s, "second")
	return strings.Join(parts, " ")
}
