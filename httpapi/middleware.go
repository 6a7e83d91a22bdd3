package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	novelAuth "github.com/MrEthical07/novelAuth"
	"github.com/MrEthical07/novelAuth/session"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type sessionContextKey struct{}

// SessionFromContext returns the session the session middleware resumed for
// the request.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(*session.Session)
	return sess, ok && sess != nil
}

// RequestContext attaches a request id and the client address to the request
// context. An incoming X-Request-ID is kept when it looks sane, otherwise a
// UUID is issued; either way it is echoed on the response.
func RequestContext(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" || len(id) > 64 {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			ctx := novelAuth.WithRequestID(r.Context(), id)
			ctx = novelAuth.WithClientIP(ctx, clientIP(r, trustProxy))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// sessions resumes the cookie's session for every request. An expired
// session continues as the fresh one the Engine returned; its flash carries
// the expiry notice.
func (s *Server) sessions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sid string
		if c, err := r.Cookie(s.cfg.CookieName); err == nil && c.Value != "" {
			parsed, err := s.cookies.Parse(c.Value)
			if err != nil {
				s.log.Warn(r.Context(), "session cookie rejected", "request_id", novelAuth.RequestIDFromContext(r.Context()))
			} else {
				sid = parsed
			}
		}

		sess, err := s.engine.Resume(r.Context(), sid)
		if err != nil && !errors.Is(err, novelAuth.ErrSessionExpired) {
			s.writeError(w, r, err)
			return
		}
		if sess.SessionID != sid {
			s.setSessionCookie(w, r, sess.SessionID)
		}

		ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSession rejects requests whose session is anonymous. A session in
// forced password rotation passes; the Engine decides what it may do.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if !ok || sess.Anonymous() {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: novelAuth.PublicMessage(novelAuth.ErrUnauthenticated)})
			return
		}
		next.ServeHTTP(w, r)
	})
}
