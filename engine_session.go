package novelAuth

import (
	"context"

	internalflows "github.com/MrEthical07/novelAuth/internal/flows"
	"github.com/MrEthical07/novelAuth/session"
)

// Resume loads the session for sessionID and applies the inactivity rule.
//
// An empty or unknown id yields a fresh anonymous session. A bound session
// idle for longer than Session.IdleTimeout, or older than Session.Lifetime,
// is cleared and returned under a new id together with [ErrSessionExpired];
// that session is usable and carries the expiry flash. Otherwise the
// activity watermark is refreshed.
func (e *Engine) Resume(ctx context.Context, sessionID string) (*session.Session, error) {
	return internalflows.RunResume(ctx, sessionID, e.sessionFlowDeps())
}

// CSRFToken returns the session's anti-forgery token, issuing and persisting
// one if the session has none.
func (e *Engine) CSRFToken(ctx context.Context, sess *session.Session) (string, error) {
	if sess == nil {
		return "", ErrUnauthenticated
	}
	return internalflows.RunEnsureCSRF(ctx, sess, e.sessionFlowDeps())
}

// SaveSession persists sess, e.g. after the caller popped a flash message.
func (e *Engine) SaveSession(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return ErrUnauthenticated
	}
	return internalflows.RunSave(ctx, sess, e.sessionFlowDeps())
}

// Logout destroys the stored session and clears sess in place. Logging out
// an anonymous or already terminated session is a no-op.
func (e *Engine) Logout(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return nil
	}
	return internalflows.RunLogout(ctx, sess, e.sessionFlowDeps())
}
