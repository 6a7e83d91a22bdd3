package novelAuth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginLocked           = "login_locked"
	auditEventLoginRateLimited      = "login_rate_limited"
	auditEventChallengeFailure      = "challenge_failure"
	auditEventLockoutTriggered      = "lockout_triggered"
	auditEventCSRFRejected          = "csrf_rejected"
	auditEventSessionExpired        = "session_expired"
	auditEventLogout                = "logout_session"
	auditEventPasswordChangeSuccess = "password_change_success"
	auditEventPasswordChangeFailure = "password_change_failure"
	auditEventPremiumChanged        = "premium_changed"
	auditEventPremiumRejected       = "premium_rejected"
	auditEventUnauthorizedAccess    = "unauthorized_access"
)

// AuditErrorCode is the stable error label carried by failed audit events.
type AuditErrorCode string

const (
	auditErrCSRFInvalid        AuditErrorCode = "csrf_invalid"
	auditErrValidation         AuditErrorCode = "validation_failed"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrInvalidCurrent     AuditErrorCode = "invalid_current_password"
	auditErrAccountUnverified  AuditErrorCode = "account_unverified"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrChallengeFailed    AuditErrorCode = "challenge_failed"
	auditErrUnauthenticated    AuditErrorCode = "unauthenticated"
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrNotEligible        AuditErrorCode = "target_not_eligible"
	auditErrSessionExpired     AuditErrorCode = "session_expired"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrPasswordReuse      AuditErrorCode = "password_reuse"
	auditErrIntegrity          AuditErrorCode = "integrity_error"
	auditErrConflict           AuditErrorCode = "cas_conflict"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		EventID:   uuid.NewString(),
		Timestamp: e.clock().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		RequestID: RequestIDFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrCSRFInvalid):
		return auditErrCSRFInvalid
	case errors.Is(err, ErrMissingFields),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrPasswordMismatch):
		return auditErrValidation
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrInvalidCurrentPassword):
		return auditErrInvalidCurrent
	case errors.Is(err, ErrAccountUnverified):
		return auditErrAccountUnverified
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrChallengeFailed):
		return auditErrChallengeFailed
	case errors.Is(err, ErrUnauthenticated):
		return auditErrUnauthenticated
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrTargetNotEligible):
		return auditErrNotEligible
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrPasswordTooWeak):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrPasswordReuse):
		return auditErrPasswordReuse
	case errors.Is(err, ErrIntegrity):
		return auditErrIntegrity
	case errors.Is(err, ErrStoreConflict):
		return auditErrConflict
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrSessionUnavailable),
		errors.Is(err, ErrChallengeUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
