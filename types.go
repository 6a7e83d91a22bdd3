package novelAuth

import (
	"io"
	"time"

	"github.com/MrEthical07/novelAuth/account"
	internalaudit "github.com/MrEthical07/novelAuth/internal/audit"
	"github.com/MrEthical07/novelAuth/logging"
	"github.com/MrEthical07/novelAuth/session"
)

// Outcome is the result of one credential attempt.
type Outcome uint8

const (
	// OutcomeAccepted means the secret verified; the trial state was reset.
	OutcomeAccepted Outcome = iota + 1
	// OutcomeRejected means the secret did not verify; one trial was counted.
	OutcomeRejected
	// OutcomeLocked means the account is inside a lockout window; nothing was
	// verified or counted.
	OutcomeLocked
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// AttemptResult is returned by [Engine.AttemptCredential]. Remaining is set
// only for OutcomeLocked.
type AttemptResult struct {
	Outcome   Outcome
	Remaining time.Duration
	// LockTriggered reports that this rejection opened a new lockout window.
	LockTriggered bool
}

// LoginRequest is one login form submission.
type LoginRequest struct {
	Email     string
	Password  string
	CSRFToken string
	// ChallengeResponse is the human-verification token; required only when
	// Security.RequireChallenge is set.
	ChallengeResponse string
}

// LoginResult is returned by a successful [Engine.Login]. Session is the
// regenerated session; the one passed in is no longer stored.
type LoginResult struct {
	Session *session.Session
	UserID  string
	// PasswordRotationRequired is set when the password is older than
	// Password.MaxAge. The session is then demoted until ChangePassword succeeds.
	PasswordRotationRequired bool
}

// ChangePasswordRequest is one password change form submission.
type ChangePasswordRequest struct {
	Current   string
	New       string
	Confirm   string
	CSRFToken string
}

// SetPremiumRequest is one admin entitlement toggle.
type SetPremiumRequest struct {
	TargetID  string
	Premium   bool
	CSRFToken string
}

// MemberSummary is the admin listing projection of a member account.
type MemberSummary = account.Summary

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes one JSON event per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// LoggerSink is an [AuditSink] that forwards events to a [logging.Logger].
type LoggerSink = internalaudit.LoggerSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewLoggerSink creates a [LoggerSink] writing through l.
func NewLoggerSink(l logging.Logger) *LoggerSink {
	return internalaudit.NewLoggerSink(l)
}
