package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	novelAuth "github.com/MrEthical07/novelAuth"
	"github.com/MrEthical07/novelAuth/jwt"
	"github.com/MrEthical07/novelAuth/logging"
	"github.com/gorilla/mux"
)

// Config controls cookie handling and client address resolution.
type Config struct {
	CookieName string
	// SecureCookie marks the session cookie Secure. Leave it off only for
	// plain-HTTP local development.
	SecureCookie bool
	// CookieMaxAge should match the engine's absolute session lifetime.
	CookieMaxAge time.Duration
	// TrustProxy reads the client address from X-Forwarded-For.
	TrustProxy bool
	// MaxBodyBytes bounds JSON request bodies.
	MaxBodyBytes int64
}

func DefaultConfig() Config {
	return Config{
		CookieName:   "novelauth_session",
		SecureCookie: true,
		CookieMaxAge: 24 * time.Hour,
		MaxBodyBytes: 16 << 10,
	}
}

// Server adapts an Engine to HTTP.
type Server struct {
	engine  *novelAuth.Engine
	cookies *jwt.Manager
	metrics http.Handler
	log     logging.Logger
	cfg     Config
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the logger for transport-level events.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l.With("component", "httpapi")
		}
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// New returns a Server. engine and cookies are required.
func New(engine *novelAuth.Engine, cookies *jwt.Manager, cfg Config, opts ...Option) (*Server, error) {
	if engine == nil {
		return nil, errors.New("engine required")
	}
	if cookies == nil {
		return nil, errors.New("cookie manager required")
	}
	if cfg.CookieName == "" {
		return nil, errors.New("cookie name required")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	s := &Server{
		engine:  engine,
		cookies: cookies,
		log:     logging.Nop(),
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Router returns the route table. /metrics bypasses the session middleware.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestContext(s.cfg.TrustProxy))

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(s.sessions)
	api.HandleFunc("/session", s.handleSession).Methods(http.MethodGet)
	api.HandleFunc("/csrf", s.handleCSRF).Methods(http.MethodGet)
	api.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	api.Handle("/settings/password", RequireSession(http.HandlerFunc(s.handleChangePassword))).Methods(http.MethodPost)
	api.HandleFunc("/admin/users", s.handleListMembers).Methods(http.MethodGet)
	api.HandleFunc("/admin/users/{id}/premium", s.handleSetPremium).Methods(http.MethodPost)

	return r
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string) {
	value, err := s.cookies.Sign(sessionID)
	if err != nil {
		s.log.Error(r.Context(), "sign session cookie", "error", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.cfg.CookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch novelAuth.KindOf(err) {
	case novelAuth.KindNone:
		return http.StatusOK
	case novelAuth.KindValidation:
		return http.StatusBadRequest
	case novelAuth.KindAuthorization:
		if errors.Is(err, novelAuth.ErrUnauthenticated) {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case novelAuth.KindLocked:
		return http.StatusTooManyRequests
	case novelAuth.KindCredential:
		return http.StatusUnauthorized
	case novelAuth.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func retryAfter(err error) (time.Duration, bool) {
	var locked *novelAuth.LockedError
	if errors.As(err, &locked) {
		return locked.Remaining, true
	}
	var limited *novelAuth.RateLimitedError
	if errors.As(err, &limited) {
		return limited.RetryAfter, true
	}
	return 0, false
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if d, ok := retryAfter(err); ok {
		secs := int64((d + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.FormatInt(max(secs, 1), 10))
	}
	if status >= http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed",
			"request_id", novelAuth.RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, errorBody{Error: novelAuth.PublicMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Malformed request."})
		return false
	}
	return true
}
