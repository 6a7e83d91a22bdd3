package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/novelAuth/account"
	"github.com/MrEthical07/novelAuth/internal/csrf"
	"github.com/MrEthical07/novelAuth/session"
)

// ChangePasswordRequest is the flow-local password change submission.
type ChangePasswordRequest struct {
	Current   string
	New       string
	Confirm   string
	CSRFToken string
}

// ChangePasswordMetrics carries metric IDs needed by the password change flow.
type ChangePasswordMetrics struct {
	PasswordChangeSuccess        int
	PasswordChangeInvalidCurrent int
	PasswordChangePolicyReject   int
	PasswordChangeReuseReject    int
	CSRFRejected                 int
}

// ChangePasswordEvents carries audit event names used by the password change flow.
type ChangePasswordEvents struct {
	PasswordChangeSuccess string
	PasswordChangeFailure string
	CSRFRejected          string
}

// ChangePasswordDeps captures password change dependencies.
type ChangePasswordDeps struct {
	Common

	Attempt AttemptDeps
	Session SessionDeps

	MinStrength   int
	SuccessNotice string

	LookupByID       func(ctx context.Context, id string) (account.Account, error)
	Strength         func(secret string, hints ...string) int
	HashPassword     func(secret string) (string, error)
	UpdateCredential func(ctx context.Context, id, expectedHash, hash string, changedAt time.Time) (bool, error)

	Metrics ChangePasswordMetrics
	Events  ChangePasswordEvents
}

func normalizeChangePasswordDeps(deps *ChangePasswordDeps) error {
	deps.Common.normalize()
	if deps.LookupByID == nil ||
		deps.Strength == nil ||
		deps.HashPassword == nil ||
		deps.UpdateCredential == nil ||
		deps.Attempt.VerifyPassword == nil {
		return deps.Errors.EngineNotReady
	}
	return nil
}

// RunChangePassword rotates the password of the account bound to sess.
//
// The current password goes through the same attempt machinery as login, so
// it shares the trial counter and lockout window. Strength and reuse are only
// checked after the current password verified. The hash, change time and
// trial reset land in a single compare-and-swap on the previous hash. A
// session in the forced rotation sub-state gets its snapshots back and a
// fresh CSRF token.
func RunChangePassword(ctx context.Context, sess *session.Session, req ChangePasswordRequest, deps ChangePasswordDeps) error {
	if err := normalizeChangePasswordDeps(&deps); err != nil {
		return err
	}
	if sess.Anonymous() {
		return deps.Errors.Unauthenticated
	}
	userID := sess.UserID

	if !csrf.Valid(sess, req.CSRFToken) {
		deps.MetricInc(deps.Metrics.CSRFRejected)
		deps.Log.Warn(ctx, "csrf token mismatch on password change", "user_id", userID)
		deps.EmitAudit(ctx, deps.Events.CSRFRejected, false, userID, sess.SessionID, deps.Errors.CSRFInvalid, func() map[string]string {
			return map[string]string{"action": "change_password"}
		})
		return deps.Errors.CSRFInvalid
	}

	if req.Current == "" || req.New == "" || req.Confirm == "" {
		return deps.Errors.MissingFields
	}
	if req.New != req.Confirm {
		return deps.Errors.PasswordMismatch
	}

	acct, err := deps.LookupByID(ctx, userID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return deps.Errors.Unauthenticated
		}
		return fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
	}

	res, err := RunAttempt(ctx, acct, req.Current, deps.Attempt)
	if err != nil {
		return err
	}
	switch res.Outcome {
	case OutcomeLocked:
		return deps.lockedErr(res.Remaining)
	case OutcomeRejected:
		return failChangePassword(ctx, sess, deps.Metrics.PasswordChangeInvalidCurrent, deps.Errors.InvalidCurrentPassword, "invalid_current", &deps)
	}
	acct = res.Account

	if deps.Strength(req.New, acct.Username, acct.Email) < deps.MinStrength {
		return failChangePassword(ctx, sess, deps.Metrics.PasswordChangePolicyReject, deps.Errors.PasswordTooWeak, "too_weak", &deps)
	}

	reused, err := deps.Attempt.VerifyPassword(req.New, acct.PasswordHash)
	if err != nil {
		return fmt.Errorf("%w: %v", deps.Errors.Integrity, err)
	}
	if reused {
		return failChangePassword(ctx, sess, deps.Metrics.PasswordChangeReuseReject, deps.Errors.PasswordReuse, "reuse", &deps)
	}

	hash, err := deps.HashPassword(req.New)
	if err != nil {
		return err
	}
	now := deps.Now()
	swapped, err := deps.UpdateCredential(ctx, acct.ID, acct.PasswordHash, hash, now)
	if err != nil {
		return fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
	}
	if !swapped {
		return deps.Errors.StoreConflict
	}

	if sess.ForcePasswordReset {
		sess.ForcePasswordReset = false
		sess.Username = acct.Username
		sess.Role = string(acct.Role)
		sess.Premium = acct.Premium
	}
	if _, err := csrf.Issue(sess); err != nil {
		return err
	}
	sess.SetFlash(session.FlashSuccess, deps.SuccessNotice)
	if err := RunSave(ctx, sess, deps.Session); err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.PasswordChangeSuccess)
	deps.Log.Info(ctx, "password changed", "user_id", acct.ID)
	deps.EmitAudit(ctx, deps.Events.PasswordChangeSuccess, true, acct.ID, sess.SessionID, nil, nil)
	return nil
}

func failChangePassword(ctx context.Context, sess *session.Session, metric int, err error, reason string, deps *ChangePasswordDeps) error {
	deps.MetricInc(metric)
	deps.Log.Info(ctx, "password change rejected", "user_id", sess.UserID, "reason", reason)
	deps.EmitAudit(ctx, deps.Events.PasswordChangeFailure, false, sess.UserID, sess.SessionID, err, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return err
}
