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

// SessionStore is the capability set flows need from session persistence.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*session.Session, error)
	Save(ctx context.Context, sess *session.Session, ttl time.Duration) error
	Rotate(ctx context.Context, previousID string, sess *session.Session, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
}

// SessionMetrics carries metric IDs needed by session lifecycle flows.
type SessionMetrics struct {
	SessionCreated int
	SessionExpired int
	Logout         int
}

// SessionEvents carries audit event names used by session lifecycle flows.
type SessionEvents struct {
	SessionExpired string
	Logout         string
}

// SessionDeps captures session lifecycle dependencies.
type SessionDeps struct {
	Common

	Store        SessionStore
	NewSessionID func() (string, error)
	// ValidID, when set, rejects ids NewSessionID could not have produced
	// before any store lookup.
	ValidID func(string) bool

	IdleTimeout    time.Duration
	Lifetime       time.Duration
	ExpiredMessage string

	Metrics SessionMetrics
	Events  SessionEvents
}

func normalizeSessionDeps(deps *SessionDeps) error {
	deps.Common.normalize()
	if deps.Store == nil || deps.NewSessionID == nil || deps.IdleTimeout <= 0 || deps.Lifetime <= 0 {
		return deps.Errors.EngineNotReady
	}
	return nil
}

func (deps *SessionDeps) ttl(sess *session.Session, now time.Time) time.Duration {
	return time.Unix(sess.CreatedAt, 0).Add(deps.Lifetime).Sub(now)
}

func (deps *SessionDeps) save(ctx context.Context, sess *session.Session, now time.Time) error {
	ttl := deps.ttl(sess, now)
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := deps.Store.Save(ctx, sess, ttl); err != nil {
		return fmt.Errorf("%w: %v", deps.Errors.SessionUnavailable, err)
	}
	return nil
}

// RunResume loads the session for the current request and applies the
// inactivity rule.
//
// An empty, unknown or undecodable id yields a fresh anonymous session. A
// bound session idle for longer than IdleTimeout, or older than Lifetime, is
// cleared, moved to a new id and returned together with
// Errors.SessionExpired; the returned session is usable and carries the
// expiry flash. Otherwise the watermark is refreshed and persisted.
func RunResume(ctx context.Context, sessionID string, deps SessionDeps) (*session.Session, error) {
	if err := normalizeSessionDeps(&deps); err != nil {
		return nil, err
	}
	now := deps.Now()

	if sessionID != "" && deps.ValidID != nil && !deps.ValidID(sessionID) {
		deps.Log.Warn(ctx, "ignoring malformed session id")
		sessionID = ""
	}

	var sess *session.Session
	if sessionID != "" {
		loaded, err := deps.Store.Get(ctx, sessionID)
		switch {
		case err == nil:
			sess = loaded
		case errors.Is(err, session.ErrNotFound):
		case errors.Is(err, session.ErrCorrupt):
			deps.Log.Warn(ctx, "discarding undecodable session", "error", err)
		default:
			return nil, fmt.Errorf("%w: %v", deps.Errors.SessionUnavailable, err)
		}
	}

	if sess == nil {
		return newAnonymousSession(ctx, now, &deps)
	}

	expired := sess.Idle(now, deps.IdleTimeout) || deps.ttl(sess, now) <= 0
	if expired && !sess.Anonymous() {
		userID := sess.UserID
		previousID := sess.SessionID

		id, err := deps.NewSessionID()
		if err != nil {
			return nil, err
		}
		sess.Clear(now)
		sess.SessionID = id
		if _, err := csrf.Issue(sess); err != nil {
			return nil, err
		}
		sess.SetFlash(session.FlashError, deps.ExpiredMessage)

		if err := deps.Store.Rotate(ctx, previousID, sess, deps.Lifetime); err != nil {
			return nil, fmt.Errorf("%w: %v", deps.Errors.SessionUnavailable, err)
		}
		deps.MetricInc(deps.Metrics.SessionExpired)
		deps.Log.Info(ctx, "session expired", "user_id", userID)
		deps.EmitAudit(ctx, deps.Events.SessionExpired, false, userID, previousID, deps.Errors.SessionExpired, nil)
		return sess, deps.Errors.SessionExpired
	}
	if expired {
		// Anonymous sessions hold nothing worth expiring; start them over.
		if err := deps.Store.Delete(ctx, sess.SessionID); err != nil {
			return nil, fmt.Errorf("%w: %v", deps.Errors.SessionUnavailable, err)
		}
		return newAnonymousSession(ctx, now, &deps)
	}

	sess.Touch(now)
	if err := deps.save(ctx, sess, now); err != nil {
		return nil, err
	}
	return sess, nil
}

func newAnonymousSession(ctx context.Context, now time.Time, deps *SessionDeps) (*session.Session, error) {
	id, err := deps.NewSessionID()
	if err != nil {
		return nil, err
	}
	sess := session.New(id, now)
	if _, err := csrf.Issue(sess); err != nil {
		return nil, err
	}
	if err := deps.save(ctx, sess, now); err != nil {
		return nil, err
	}
	deps.MetricInc(deps.Metrics.SessionCreated)
	return sess, nil
}

// RunEstablish binds acct to a brand new session that replaces sess.
//
// The identifier is regenerated and the previous one removed atomically, a
// fresh CSRF token is issued and the account's username, role and premium
// flag are snapshotted. When demote is set the snapshot is dropped again and
// the session enters the forced password rotation sub-state.
func RunEstablish(ctx context.Context, sess *session.Session, acct account.Account, demote bool, deps SessionDeps) (*session.Session, error) {
	if err := normalizeSessionDeps(&deps); err != nil {
		return nil, err
	}
	now := deps.Now()

	id, err := deps.NewSessionID()
	if err != nil {
		return nil, err
	}
	next := session.New(id, now)
	next.UserID = acct.ID
	next.Username = acct.Username
	next.Role = string(acct.Role)
	next.Premium = acct.Premium
	if demote {
		next.Demote()
	}
	if _, err := csrf.Issue(next); err != nil {
		return nil, err
	}

	previousID := ""
	if sess != nil {
		previousID = sess.SessionID
	}
	if err := deps.Store.Rotate(ctx, previousID, next, deps.Lifetime); err != nil {
		return nil, fmt.Errorf("%w: %v", deps.Errors.SessionUnavailable, err)
	}
	deps.MetricInc(deps.Metrics.SessionCreated)
	return next, nil
}

// RunSave persists sess with its remaining absolute lifetime.
func RunSave(ctx context.Context, sess *session.Session, deps SessionDeps) error {
	if err := normalizeSessionDeps(&deps); err != nil {
		return err
	}
	if sess == nil {
		return deps.Errors.EngineNotReady
	}
	return deps.save(ctx, sess, deps.Now())
}

// RunEnsureCSRF returns the session's active CSRF token, issuing and
// persisting one when the session has none.
func RunEnsureCSRF(ctx context.Context, sess *session.Session, deps SessionDeps) (string, error) {
	if err := normalizeSessionDeps(&deps); err != nil {
		return "", err
	}
	if sess == nil {
		return "", deps.Errors.EngineNotReady
	}
	if token := sess.CSRF(); token != "" {
		return token, nil
	}
	token, err := csrf.Issue(sess)
	if err != nil {
		return "", err
	}
	if err := deps.save(ctx, sess, deps.Now()); err != nil {
		return "", err
	}
	return token, nil
}

// RunLogout terminates sess: the stored record is removed and the in-memory
// value is wiped. Logging out an anonymous or already removed session is not
// an error.
func RunLogout(ctx context.Context, sess *session.Session, deps SessionDeps) error {
	if err := normalizeSessionDeps(&deps); err != nil {
		return err
	}
	if sess == nil || sess.SessionID == "" {
		return nil
	}
	userID := sess.UserID
	sessionID := sess.SessionID

	if err := deps.Store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("%w: %v", deps.Errors.SessionUnavailable, err)
	}
	sess.Clear(deps.Now())
	sess.SessionID = ""

	if userID != "" {
		deps.MetricInc(deps.Metrics.Logout)
		deps.Log.Info(ctx, "user logged out", "user_id", userID)
		deps.EmitAudit(ctx, deps.Events.Logout, true, userID, sessionID, nil, nil)
	}
	return nil
}
