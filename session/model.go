package session

import "time"

// FlashKind distinguishes error flashes from success flashes.
type FlashKind uint8

const (
	FlashNone FlashKind = iota
	FlashError
	FlashSuccess
)

// Flash is a one-shot message shown on the next page the session renders.
type Flash struct {
	Kind    FlashKind
	Message string
}

// Session is the per-browser authentication context.
//
// A session with an empty UserID is anonymous. While ForcePasswordReset is
// set the session is identified (UserID is kept) but carries no role,
// premium or username snapshot and may only rotate its password.
type Session struct {
	SessionID string
	UserID    string
	Username  string
	Role      string
	Premium   bool

	ForcePasswordReset bool

	CSRFToken string
	Flash     Flash

	CreatedAt    int64
	LastActivity int64
}

// New returns an anonymous session with the given id.
func New(sessionID string, now time.Time) *Session {
	return &Session{
		SessionID:    sessionID,
		CreatedAt:    now.Unix(),
		LastActivity: now.Unix(),
	}
}

func (s *Session) CSRF() string         { return s.CSRFToken }
func (s *Session) SetCSRF(token string) { s.CSRFToken = token }

// Anonymous reports whether no account is bound to s.
func (s *Session) Anonymous() bool {
	return s == nil || s.UserID == ""
}

// Authenticated reports whether s carries a full identity, i.e. is bound to
// an account and not waiting on a forced rotation.
func (s *Session) Authenticated() bool {
	return !s.Anonymous() && !s.ForcePasswordReset
}

// Idle reports whether more than threshold elapsed since the last activity.
func (s *Session) Idle(now time.Time, threshold time.Duration) bool {
	return now.Unix()-s.LastActivity > int64(threshold/time.Second)
}

// Touch moves the inactivity watermark to now.
func (s *Session) Touch(now time.Time) {
	s.LastActivity = now.Unix()
}

// Demote drops the role, premium and username snapshots, keeping the bound
// account id so the holder can still rotate its password.
func (s *Session) Demote() {
	s.Username = ""
	s.Role = ""
	s.Premium = false
	s.ForcePasswordReset = true
}

// Clear wipes every field except the session id.
func (s *Session) Clear(now time.Time) {
	*s = Session{
		SessionID:    s.SessionID,
		CreatedAt:    now.Unix(),
		LastActivity: now.Unix(),
	}
}

// SetFlash replaces any pending flash.
func (s *Session) SetFlash(kind FlashKind, message string) {
	s.Flash = Flash{Kind: kind, Message: message}
}

// PopFlash returns the pending flash and removes it.
func (s *Session) PopFlash() (Flash, bool) {
	f := s.Flash
	s.Flash = Flash{}
	return f, f.Kind != FlashNone
}
