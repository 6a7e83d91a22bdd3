package novelAuth

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindNone},
		{ErrMissingFields, KindValidation},
		{ErrPasswordReuse, KindValidation},
		{ErrTargetNotEligible, KindValidation},
		{ErrCSRFInvalid, KindAuthorization},
		{ErrUnauthorized, KindAuthorization},
		{&LockedError{Remaining: time.Minute}, KindLocked},
		{&RateLimitedError{RetryAfter: time.Minute}, KindLocked},
		{ErrInvalidCredentials, KindCredential},
		{ErrChallengeFailed, KindCredential},
		{fmt.Errorf("%w: dial tcp", ErrStoreUnavailable), KindUnavailable},
		{ErrStoreConflict, KindUnavailable},
		{ErrIntegrity, KindIntegrity},
		{errors.New("surprise"), KindIntegrity},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Fatalf("KindOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestLockedErrorUnwraps(t *testing.T) {
	var err error = &LockedError{Remaining: 40 * time.Second}
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatal("expected LockedError to match ErrAccountLocked")
	}
	var locked *LockedError
	if !errors.As(fmt.Errorf("login: %w", err), &locked) || locked.Remaining != 40*time.Second {
		t.Fatalf("unexpected unwrap: %+v", locked)
	}
}

func TestPublicMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrInvalidCredentials, "Invalid email or password!"},
		{&LockedError{Remaining: 320 * time.Second}, "Too many failed attempts. Try again in 5 minutes 20 seconds."},
		{&RateLimitedError{RetryAfter: time.Hour}, "Too many failed attempts. Try again in 1 hour."},
		{ErrTargetNotEligible, "Unauthorized action."},
		{ErrPasswordReuse, "You can't use the same password."},
		{fmt.Errorf("%w: timeout", ErrSessionUnavailable), "Service temporarily unavailable. Please try again."},
		{errors.New("pq: relation does not exist"), "Authentication error."},
	}
	for _, tt := range tests {
		if got := PublicMessage(tt.err); got != tt.want {
			t.Fatalf("PublicMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestWaitText(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "1 second"},
		{1500 * time.Millisecond, "2 seconds"},
		{40 * time.Second, "40 seconds"},
		{60 * time.Second, "1 minute"},
		{320 * time.Second, "5 minutes 20 seconds"},
		{24 * time.Hour, "24 hours"},
		{time.Hour + time.Second, "1 hour 1 second"},
	}
	for _, tt := range tests {
		if got := waitText(tt.d); got != tt.want {
			t.Fatalf("waitText(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
