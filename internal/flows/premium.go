package flows

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/MrEthical07/novelAuth/account"
	"github.com/MrEthical07/novelAuth/internal/csrf"
	"github.com/MrEthical07/novelAuth/session"
)

// SetPremiumRequest is the flow-local privilege toggle submission.
type SetPremiumRequest struct {
	TargetID  string
	Premium   bool
	CSRFToken string
}

// AdminMetrics carries metric IDs needed by administrative flows.
type AdminMetrics struct {
	PremiumChanged     int
	UnauthorizedAccess int
	CSRFRejected       int
}

// AdminEvents carries audit event names used by administrative flows.
type AdminEvents struct {
	PremiumChanged     string
	PremiumRejected    string
	UnauthorizedAccess string
	CSRFRejected       string
}

// AdminDeps captures dependencies of the premium toggle and member listing.
type AdminDeps struct {
	Common

	Session       SessionDeps
	SuccessNotice string

	LookupByID        func(ctx context.Context, id string) (account.Account, error)
	UpdatePremiumFlag func(ctx context.Context, id string, premium bool) error
	ListByRole        func(ctx context.Context, role account.Role) ([]account.Account, error)

	Metrics AdminMetrics
	Events  AdminEvents
}

func normalizeAdminDeps(deps *AdminDeps) {
	deps.Common.normalize()
}

// requireAdmin rejects anything but a fully authenticated admin session. The
// refusal is logged at error level with the caller's address.
func requireAdmin(ctx context.Context, sess *session.Session, action string, deps *AdminDeps) error {
	if sess.Authenticated() && sess.Role == string(account.RoleAdmin) {
		return nil
	}
	userID := ""
	if sess != nil {
		userID = sess.UserID
	}
	deps.MetricInc(deps.Metrics.UnauthorizedAccess)
	deps.Log.Error(ctx, "unauthorized admin access attempt",
		"ip", deps.ClientIPFromContext(ctx),
		"user_id", userID,
		"action", action,
	)
	deps.EmitAudit(ctx, deps.Events.UnauthorizedAccess, false, userID, sessionIDOf(sess), deps.Errors.Unauthorized, func() map[string]string {
		return map[string]string{"action": action}
	})
	return deps.Errors.Unauthorized
}

// RunSetPremium toggles the premium flag of a member account on behalf of the
// admin bound to sess. Authorization is decided before any lookup; admins
// cannot be targeted.
func RunSetPremium(ctx context.Context, sess *session.Session, req SetPremiumRequest, deps AdminDeps) error {
	normalizeAdminDeps(&deps)
	if deps.LookupByID == nil || deps.UpdatePremiumFlag == nil {
		return deps.Errors.EngineNotReady
	}

	if err := requireAdmin(ctx, sess, "set_premium", &deps); err != nil {
		return err
	}
	if !csrf.Valid(sess, req.CSRFToken) {
		deps.MetricInc(deps.Metrics.CSRFRejected)
		deps.Log.Warn(ctx, "csrf token mismatch on privilege change", "user_id", sess.UserID)
		deps.EmitAudit(ctx, deps.Events.CSRFRejected, false, sess.UserID, sess.SessionID, deps.Errors.CSRFInvalid, func() map[string]string {
			return map[string]string{"action": "set_premium"}
		})
		return deps.Errors.CSRFInvalid
	}
	if req.TargetID == "" {
		return deps.Errors.MissingFields
	}

	target, err := deps.LookupByID(ctx, req.TargetID)
	if err != nil && !errors.Is(err, account.ErrNotFound) {
		return fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
	}
	if err != nil || target.Role != account.RoleUser {
		return rejectPremium(ctx, sess, req.TargetID, &deps)
	}

	if err := deps.UpdatePremiumFlag(ctx, target.ID, req.Premium); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return rejectPremium(ctx, sess, req.TargetID, &deps)
		}
		return fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
	}

	deps.MetricInc(deps.Metrics.PremiumChanged)
	deps.Log.Info(ctx, "premium flag updated",
		"admin_id", sess.UserID,
		"target_id", target.ID,
		"premium", req.Premium,
	)
	deps.EmitAudit(ctx, deps.Events.PremiumChanged, true, sess.UserID, sess.SessionID, nil, func() map[string]string {
		return map[string]string{
			"target_id": target.ID,
			"premium":   strconv.FormatBool(req.Premium),
		}
	})

	sess.SetFlash(session.FlashSuccess, deps.SuccessNotice)
	return RunSave(ctx, sess, deps.Session)
}

func rejectPremium(ctx context.Context, sess *session.Session, targetID string, deps *AdminDeps) error {
	deps.Log.Warn(ctx, "premium change target not eligible", "admin_id", sess.UserID, "target_id", targetID)
	deps.EmitAudit(ctx, deps.Events.PremiumRejected, false, sess.UserID, sess.SessionID, deps.Errors.TargetNotEligible, func() map[string]string {
		return map[string]string{"target_id": targetID}
	})
	return deps.Errors.TargetNotEligible
}

// RunListMembers returns the admin listing of every member account.
func RunListMembers(ctx context.Context, sess *session.Session, deps AdminDeps) ([]account.Summary, error) {
	normalizeAdminDeps(&deps)
	if deps.ListByRole == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if err := requireAdmin(ctx, sess, "list_members", &deps); err != nil {
		return nil, err
	}

	members, err := deps.ListByRole(ctx, account.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
	}
	out := make([]account.Summary, 0, len(members))
	for _, m := range members {
		out = append(out, m.Summarize())
	}
	return out, nil
}
