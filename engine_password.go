package novelAuth

import (
	"context"

	internalflows "github.com/MrEthical07/novelAuth/internal/flows"
	"github.com/MrEthical07/novelAuth/password"
	"github.com/MrEthical07/novelAuth/session"
)

// ChangePassword rotates the password of the account bound to sess.
//
// The current password is checked through the same lockout machinery as
// login. The new password must match its confirmation, score at least
// Password.MinStrength and differ from the current one. On success the hash,
// change time and trial reset are written together, the CSRF token rotates
// and a session in forced rotation regains its role and premium snapshots.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) ChangePassword(ctx context.Context, sess *session.Session, req ChangePasswordRequest) error {
	if sess == nil {
		return ErrUnauthenticated
	}
	return internalflows.RunChangePassword(ctx, sess, internalflows.ChangePasswordRequest{
		Current:   req.Current,
		New:       req.New,
		Confirm:   req.Confirm,
		CSRFToken: req.CSRFToken,
	}, e.changePasswordFlowDeps())
}

func (e *Engine) changePasswordFlowDeps() internalflows.ChangePasswordDeps {
	if !e.ready() {
		return internalflows.ChangePasswordDeps{Common: internalflows.Common{Errors: flowErrors()}}
	}
	return internalflows.ChangePasswordDeps{
		Common:           e.commonFlowDeps(),
		Attempt:          e.attemptFlowDeps(),
		Session:          e.sessionFlowDeps(),
		MinStrength:      e.config.Password.MinStrength,
		SuccessNotice:    e.config.Messages.PasswordChanged,
		LookupByID:       e.accounts.LookupByID,
		Strength:         password.Strength,
		HashPassword:     e.hasher.Hash,
		UpdateCredential: e.accounts.UpdateCredential,
		Metrics: internalflows.ChangePasswordMetrics{
			PasswordChangeSuccess:        int(MetricPasswordChangeSuccess),
			PasswordChangeInvalidCurrent: int(MetricPasswordChangeInvalidCurrent),
			PasswordChangePolicyReject:   int(MetricPasswordChangePolicyReject),
			PasswordChangeReuseReject:    int(MetricPasswordChangeReuseReject),
			CSRFRejected:                 int(MetricCSRFRejected),
		},
		Events: internalflows.ChangePasswordEvents{
			PasswordChangeSuccess: auditEventPasswordChangeSuccess,
			PasswordChangeFailure: auditEventPasswordChangeFailure,
			CSRFRejected:          auditEventCSRFRejected,
		},
	}
}
