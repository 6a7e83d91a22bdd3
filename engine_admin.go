package novelAuth

import (
	"context"

	internalflows "github.com/MrEthical07/novelAuth/internal/flows"
	"github.com/MrEthical07/novelAuth/session"
)

// SetPremium sets the premium flag of a member account. Only an admin
// session may call it, and only accounts with the user role can be targeted;
// anything else fails without touching the store.
func (e *Engine) SetPremium(ctx context.Context, sess *session.Session, req SetPremiumRequest) error {
	if sess == nil {
		return ErrUnauthorized
	}
	return internalflows.RunSetPremium(ctx, sess, internalflows.SetPremiumRequest{
		TargetID:  req.TargetID,
		Premium:   req.Premium,
		CSRFToken: req.CSRFToken,
	}, e.adminFlowDeps())
}

// ListMembers returns every member account for an admin session.
func (e *Engine) ListMembers(ctx context.Context, sess *session.Session) ([]MemberSummary, error) {
	if sess == nil {
		return nil, ErrUnauthorized
	}
	return internalflows.RunListMembers(ctx, sess, e.adminFlowDeps())
}

func (e *Engine) adminFlowDeps() internalflows.AdminDeps {
	if !e.ready() {
		return internalflows.AdminDeps{Common: internalflows.Common{Errors: flowErrors()}}
	}
	return internalflows.AdminDeps{
		Common:            e.commonFlowDeps(),
		Session:           e.sessionFlowDeps(),
		SuccessNotice:     e.config.Messages.PremiumChanged,
		LookupByID:        e.accounts.LookupByID,
		UpdatePremiumFlag: e.accounts.UpdatePremiumFlag,
		ListByRole:        e.accounts.ListByRole,
		Metrics: internalflows.AdminMetrics{
			PremiumChanged:     int(MetricPremiumChanged),
			UnauthorizedAccess: int(MetricUnauthorizedAccess),
			CSRFRejected:       int(MetricCSRFRejected),
		},
		Events: internalflows.AdminEvents{
			PremiumChanged:     auditEventPremiumChanged,
			PremiumRejected:    auditEventPremiumRejected,
			UnauthorizedAccess: auditEventUnauthorizedAccess,
			CSRFRejected:       auditEventCSRFRejected,
		},
	}
}
