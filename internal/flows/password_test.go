package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/novelAuth/session"
)

const strongSecret = "violet-harbor-lantern-42"

func TestChangePasswordSuccess(t *testing.T) {
	h := newHarness(t)
	h.member("u1", "u1@example.com", "correct horse")
	sess := h.loggedIn(t, "u1@example.com", "correct horse")
	oldToken := sess.CSRFToken
	h.advance(time.Minute)

	err := RunChangePassword(context.Background(), sess, ChangePasswordRequest{
		Current:   "correct horse",
		New:       strongSecret,
		Confirm:   strongSecret,
		CSRFToken: oldToken,
	}, h.deps.ChangePassword)
	if err != nil {
		t.Fatalf("change password: %v", err)
	}

	stored := h.accounts.get("u1")
	if stored.PasswordHash != plainHash(strongSecret) {
		t.Fatal("hash not replaced")
	}
	if stored.PasswordChangedAt == nil || !stored.PasswordChangedAt.Equal(h.clock()) {
		t.Fatalf("changed_at = %v, want %v", stored.PasswordChangedAt, h.clock())
	}
	if stored.TrialCount != 0 || stored.UnlockAt != nil {
		t.Fatalf("trial state not reset: %+v", stored)
	}
	if sess.CSRFToken == oldToken {
		t.Fatal("csrf token must rotate after a password change")
	}
	if f, ok := sess.PopFlash(); !ok || f.Kind != session.FlashSuccess {
		t.Fatalf("flash = %+v", f)
	}
}

func TestChangePasswordRejections(t *testing.T) {
	h := newHarness(t)
	h.member("u1", "u1@example.com", "correct horse")
	sess := h.loggedIn(t, "u1@example.com", "correct horse")

	cases := []struct {
		name string
		req  ChangePasswordRequest
		want error
	}{
		{"missing", ChangePasswordRequest{Current: "correct horse", New: strongSecret}, errMissing},
		{"mismatch", ChangePasswordRequest{Current: "correct horse", New: strongSecret, Confirm: strongSecret + "x"}, errMismatch},
		{"weak", ChangePasswordRequest{Current: "correct horse", New: "short", Confirm: "short"}, errWeak},
		{"reuse", ChangePasswordRequest{Current: "correct horse", New: "correct horse", Confirm: "correct horse"}, errReuse},
	}
	for _, tc := range cases {
		tc.req.CSRFToken = sess.CSRFToken
		if err := RunChangePassword(context.Background(), sess, tc.req, h.deps.ChangePassword); !errors.Is(err, tc.want) {
			t.Fatalf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
	if got := h.accounts.get("u1").PasswordHash; got != plainHash("correct horse") {
		t.Fatal("rejected change must not touch the hash")
	}
}

func TestChangePasswordReuseCheckedAfterStrength(t *testing.T) {
	h := newHarness(t)
	h.member("u1", "u1@example.com", strongSecret)
	sess := h.loggedIn(t, "u1@example.com", strongSecret)

	err := RunChangePassword(context.Background(), sess, ChangePasswordRequest{
		Current: strongSecret, New: strongSecret, Confirm: strongSecret, CSRFToken: sess.CSRFToken,
	}, h.deps.ChangePassword)
	if !errors.Is(err, errReuse) {
		t.Fatalf("err = %v, want reuse", err)
	}
}

func TestChangePasswordWrongCurrentSharesLockout(t *testing.T) {
	h := newHarness(t)
	h.member("u1", "u1@example.com", "correct horse")
	sess := h.loggedIn(t, "u1@example.com", "correct horse")
	req := ChangePasswordRequest{Current: "guess", New: strongSecret, Confirm: strongSecret, CSRFToken: sess.CSRFToken}

	for i := 0; i < 3; i++ {
		if err := RunChangePassword(context.Background(), sess, req, h.deps.ChangePassword); !errors.Is(err, errCurrent) {
			t.Fatalf("attempt %d: err = %v, want invalid current", i+1, err)
		}
	}
	req.Current = "correct horse"
	if err := RunChangePassword(context.Background(), sess, req, h.deps.ChangePassword); !errors.Is(err, errLocked) {
		t.Fatalf("err = %v, want locked", err)
	}

	anon := h.anonymous(t)
	_, err := RunLogin(context.Background(), anon, LoginRequest{
		Email: "u1@example.com", Password: "correct horse", CSRFToken: anon.CSRFToken,
	}, h.deps.Login)
	if !errors.Is(err, errLocked) {
		t.Fatalf("login err = %v, want locked by password change failures", err)
	}
}

func TestChangePasswordRequiresBoundSessionAndCSRF(t *testing.T) {
	h := newHarness(t)
	h.member("u1", "u1@example.com", "correct horse")

	anon := h.anonymous(t)
	req := ChangePasswordRequest{Current: "correct horse", New: strongSecret, Confirm: strongSecret, CSRFToken: anon.CSRFToken}
	if err := RunChangePassword(context.Background(), anon, req, h.deps.ChangePassword); !errors.Is(err, errUnauthenticated) {
		t.Fatalf("err = %v, want unauthenticated", err)
	}

	sess := h.loggedIn(t, "u1@example.com", "correct horse")
	req.CSRFToken = "stale"
	if err := RunChangePassword(context.Background(), sess, req, h.deps.ChangePassword); !errors.Is(err, errCSRF) {
		t.Fatalf("err = %v, want csrf", err)
	}
}

func TestChangePasswordLeavesForcedRotation(t *testing.T) {
	h := newHarness(t)
	a := h.member("u1", "u1@example.com", "correct horse")
	a.Premium = true
	changed := h.clock().Add(-100 * 24 * time.Hour)
	a.PasswordChangedAt = &changed
	h.accounts.add(a)

	sess := h.loggedIn(t, "u1@example.com", "correct horse")
	if !sess.ForcePasswordReset {
		t.Fatal("expected forced rotation")
	}

	err := RunChangePassword(context.Background(), sess, ChangePasswordRequest{
		Current: "correct horse", New: strongSecret, Confirm: strongSecret, CSRFToken: sess.CSRFToken,
	}, h.deps.ChangePassword)
	if err != nil {
		t.Fatalf("change password: %v", err)
	}
	if sess.ForcePasswordReset || sess.Role != "user" || !sess.Premium || sess.Username != "u1" {
		t.Fatalf("snapshots not restored: %+v", sess)
	}

	stored, err := h.sessions.Get(context.Background(), sess.SessionID)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if stored.ForcePasswordReset || stored.Role != "user" {
		t.Fatalf("persisted session not restored: %+v", stored)
	}
}

func TestChangePasswordLostRaceIsConflict(t *testing.T) {
	h := newHarness(t)
	h.member("u1", "u1@example.com", "correct horse")
	sess := h.loggedIn(t, "u1@example.com", "correct horse")

	deps := h.deps.ChangePassword
	deps.UpdateCredential = func(context.Context, string, string, string, time.Time) (bool, error) {
		return false, nil
	}
	err := RunChangePassword(context.Background(), sess, ChangePasswordRequest{
		Current: "correct horse", New: strongSecret, Confirm: strongSecret, CSRFToken: sess.CSRFToken,
	}, deps)
	if !errors.Is(err, errConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}
