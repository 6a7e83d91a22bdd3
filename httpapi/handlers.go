package httpapi

import (
	"net/http"

	novelAuth "github.com/MrEthical07/novelAuth"
	"github.com/MrEthical07/novelAuth/session"
	"github.com/gorilla/mux"
)

const csrfHeader = "X-CSRF-Token"

type flashBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type sessionBody struct {
	Authenticated      bool       `json:"authenticated"`
	UserID             string     `json:"user_id,omitempty"`
	Username           string     `json:"username,omitempty"`
	Role               string     `json:"role,omitempty"`
	Premium            bool       `json:"premium"`
	ForcePasswordReset bool       `json:"force_password_reset"`
	Flash              *flashBody `json:"flash,omitempty"`
}

type memberBody struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Premium  bool   `json:"premium"`
}

type messageBody struct {
	Message string `json:"message"`
}

func csrfFrom(r *http.Request, body string) string {
	if body != "" {
		return body
	}
	return r.Header.Get(csrfHeader)
}

// popFlash takes the pending flash off sess and persists the removal.
func (s *Server) popFlash(r *http.Request, sess *session.Session) *flashBody {
	f, ok := sess.PopFlash()
	if !ok {
		return nil
	}
	if err := s.engine.SaveSession(r.Context(), sess); err != nil {
		s.log.Warn(r.Context(), "persist popped flash", "error", err)
	}
	kind := "error"
	if f.Kind == session.FlashSuccess {
		kind = "success"
	}
	return &flashBody{Kind: kind, Message: f.Message}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.engine.Health(r.Context())
	status := http.StatusOK
	if !h.RedisAvailable {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"redis":            h.RedisAvailable,
		"redis_latency_ms": h.RedisLatency.Milliseconds(),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, sessionBody{
		Authenticated:      sess.Authenticated(),
		UserID:             sess.UserID,
		Username:           sess.Username,
		Role:               sess.Role,
		Premium:            sess.Premium,
		ForcePasswordReset: sess.ForcePasswordReset,
		Flash:              s.popFlash(r, sess),
	})
}

func (s *Server) handleCSRF(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFromContext(r.Context())
	token, err := s.engine.CSRFToken(r.Context(), sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email             string `json:"email"`
		Password          string `json:"password"`
		CSRFToken         string `json:"csrf_token"`
		ChallengeResponse string `json:"g-recaptcha-response"`
	}
	if !s.decode(w, r, &body) {
		return
	}

	sess, _ := SessionFromContext(r.Context())
	res, err := s.engine.Login(r.Context(), sess, novelAuth.LoginRequest{
		Email:             body.Email,
		Password:          body.Password,
		CSRFToken:         csrfFrom(r, body.CSRFToken),
		ChallengeResponse: body.ChallengeResponse,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setSessionCookie(w, r, res.Session.SessionID)
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":                    res.UserID,
		"password_rotation_required": res.PasswordRotationRequired,
		"csrf_token":                 res.Session.CSRFToken,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFromContext(r.Context())
	if err := s.engine.Logout(r.Context(), sess); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Current   string `json:"current_password"`
		New       string `json:"new_password"`
		Confirm   string `json:"confirm_password"`
		CSRFToken string `json:"csrf_token"`
	}
	if !s.decode(w, r, &body) {
		return
	}

	sess, _ := SessionFromContext(r.Context())
	err := s.engine.ChangePassword(r.Context(), sess, novelAuth.ChangePasswordRequest{
		Current:   body.Current,
		New:       body.New,
		Confirm:   body.Confirm,
		CSRFToken: csrfFrom(r, body.CSRFToken),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	msg := messageBody{}
	if f := s.popFlash(r, sess); f != nil {
		msg.Message = f.Message
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFromContext(r.Context())
	members, err := s.engine.ListMembers(r.Context(), sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]memberBody, 0, len(members))
	for _, m := range members {
		out = append(out, memberBody{ID: m.ID, Username: m.Username, Email: m.Email, Premium: m.Premium})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSetPremium(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Premium   bool   `json:"premium"`
		CSRFToken string `json:"csrf_token"`
	}
	if !s.decode(w, r, &body) {
		return
	}

	sess, _ := SessionFromContext(r.Context())
	err := s.engine.SetPremium(r.Context(), sess, novelAuth.SetPremiumRequest{
		TargetID:  mux.Vars(r)["id"],
		Premium:   body.Premium,
		CSRFToken: csrfFrom(r, body.CSRFToken),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	msg := messageBody{}
	if f := s.popFlash(r, sess); f != nil {
		msg.Message = f.Message
	}
	writeJSON(w, http.StatusOK, msg)
}
