package flows

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/novelAuth/account"
	"github.com/MrEthical07/novelAuth/internal"
	"github.com/MrEthical07/novelAuth/internal/lockout"
	"github.com/MrEthical07/novelAuth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var (
	errNotReady          = errors.New("not ready")
	errCSRF              = errors.New("csrf")
	errMissing           = errors.New("missing fields")
	errEmail             = errors.New("invalid email")
	errMismatch          = errors.New("mismatch")
	errWeak              = errors.New("weak")
	errReuse             = errors.New("reuse")
	errCredentials       = errors.New("invalid credentials")
	errCurrent           = errors.New("invalid current password")
	errUnverified        = errors.New("unverified")
	errChallenge         = errors.New("challenge failed")
	errUnauthenticated   = errors.New("unauthenticated")
	errUnauthorized      = errors.New("unauthorized")
	errNotEligible       = errors.New("not eligible")
	errExpired           = errors.New("expired")
	errIntegrity         = errors.New("integrity")
	errConflict          = errors.New("conflict")
	errStore             = errors.New("store unavailable")
	errSessionStore      = errors.New("session unavailable")
	errChallengeDown     = errors.New("challenge unavailable")
	errLocked            = errors.New("locked")
	errRateLimited       = errors.New("rate limited")
	errMalformedTestHash = errors.New("malformed hash")
)

func testErrors() Errors {
	return Errors{
		EngineNotReady:         errNotReady,
		CSRFInvalid:            errCSRF,
		MissingFields:          errMissing,
		InvalidEmail:           errEmail,
		PasswordMismatch:       errMismatch,
		PasswordTooWeak:        errWeak,
		PasswordReuse:          errReuse,
		InvalidCredentials:     errCredentials,
		InvalidCurrentPassword: errCurrent,
		AccountUnverified:      errUnverified,
		ChallengeFailed:        errChallenge,
		Unauthenticated:        errUnauthenticated,
		Unauthorized:           errUnauthorized,
		TargetNotEligible:      errNotEligible,
		SessionExpired:         errExpired,
		Integrity:              errIntegrity,
		StoreConflict:          errConflict,
		StoreUnavailable:       errStore,
		SessionUnavailable:     errSessionStore,
		ChallengeUnavailable:   errChallengeDown,
		Locked: func(d time.Duration) error {
			return fmt.Errorf("%w: %s", errLocked, d)
		},
		RateLimited: func(d time.Duration) error {
			return fmt.Errorf("%w: %s", errRateLimited, d)
		},
	}
}

// memAccounts is an in-memory account.Store with the same CAS semantics as
// the SQL store.
type memAccounts struct {
	mu      sync.Mutex
	byID    map[string]account.Account
	lookups int
	// casMisses makes the next n UpdateTrialState calls report a lost race.
	casMisses int
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byID: map[string]account.Account{}}
}

func (m *memAccounts) add(a account.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[a.ID] = a
}

func (m *memAccounts) get(id string) account.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

func (m *memAccounts) LookupByEmail(_ context.Context, email string) (account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	for _, a := range m.byID {
		if a.Email == email {
			return a, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (m *memAccounts) LookupByID(_ context.Context, id string) (account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	a, ok := m.byID[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return a, nil
}

func (m *memAccounts) UpdateTrialState(_ context.Context, id string, expectedTrials, trials int, unlockAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.casMisses > 0 {
		m.casMisses--
		return false, nil
	}
	a, ok := m.byID[id]
	if !ok || a.TrialCount != expectedTrials {
		return false, nil
	}
	a.TrialCount = trials
	a.UnlockAt = unlockAt
	m.byID[id] = a
	return true, nil
}

func (m *memAccounts) UpdateCredential(_ context.Context, id, expectedHash, hash string, changedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok || a.PasswordHash != expectedHash {
		return false, nil
	}
	a.PasswordHash = hash
	a.PasswordChangedAt = &changedAt
	a.TrialCount = 0
	a.UnlockAt = nil
	m.byID[id] = a
	return true, nil
}

func (m *memAccounts) UpdatePremiumFlag(_ context.Context, id string, premium bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok || a.Role != account.RoleUser {
		return account.ErrNotFound
	}
	a.Premium = premium
	m.byID[id] = a
	return nil
}

func (m *memAccounts) ListByRole(_ context.Context, role account.Role) ([]account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []account.Account
	for _, a := range m.byID {
		if a.Role == role {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// flowDeps bundles one dependency set per flow, filled the way the engine
// fills them.
type flowDeps struct {
	Attempt        AttemptDeps
	Session        SessionDeps
	Login          LoginDeps
	ChangePassword ChangePasswordDeps
	Admin          AdminDeps
}

type harness struct {
	mu       sync.Mutex
	now      time.Time
	accounts *memAccounts
	sessions *session.Store
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	verifies int
	events   []string
	deps     flowDeps
}

func plainHash(secret string) string { return "plain:" + secret }

func (h *harness) verify(secret, encoded string) (bool, error) {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	if !strings.HasPrefix(encoded, "plain:") {
		return false, errMalformedTestHash
	}
	return encoded == plainHash(secret), nil
}

func (h *harness) clock() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func (h *harness) advance(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = h.now.Add(d)
}

func (h *harness) sawEvent(event string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.events {
		if e == event {
			return true
		}
	}
	return false
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := &harness{
		now:      time.Unix(1_700_000_000, 0),
		accounts: newMemAccounts(),
		sessions: session.NewStore(rdb, "test"),
		mr:       mr,
		rdb:      rdb,
	}

	common := Common{
		Now: h.clock,
		ClientIPFromContext: func(context.Context) string {
			return "203.0.113.7"
		},
		EmitAudit: func(_ context.Context, event string, _ bool, _, _ string, _ error, _ func() map[string]string) {
			h.mu.Lock()
			h.events = append(h.events, event)
			h.mu.Unlock()
		},
		Errors: testErrors(),
	}

	attempt := AttemptDeps{
		Common:           common,
		Policy:           lockout.DefaultPolicy(),
		CASRetries:       3,
		Reload:           h.accounts.LookupByID,
		UpdateTrialState: h.accounts.UpdateTrialState,
		VerifyPassword:   h.verify,
		Events:           AttemptEvents{LockoutTriggered: "lockout_triggered"},
	}
	sess := SessionDeps{
		Common: common,
		Store:  h.sessions,
		NewSessionID: func() (string, error) {
			id, err := internal.NewSessionID()
			return id.String(), err
		},
		IdleTimeout:    300 * time.Second,
		Lifetime:       24 * time.Hour,
		ExpiredMessage: "Session expired. Please log in again.",
		Events: SessionEvents{
			SessionExpired: "session_expired",
			Logout:         "logout",
		},
	}

	h.deps = flowDeps{
		Attempt: attempt,
		Session: sess,
		Login: LoginDeps{
			Common:         common,
			Attempt:        attempt,
			Session:        sess,
			MaxPasswordAge: 90 * 24 * time.Hour,
			DummyHash:      plainHash("dummy-not-a-password"),
			LookupByEmail:  h.accounts.LookupByEmail,
			Events: LoginEvents{
				LoginSuccess:     "login_success",
				LoginFailure:     "login_failure",
				LoginLocked:      "login_locked",
				LoginRateLimited: "login_rate_limited",
				ChallengeFailure: "challenge_failure",
				CSRFRejected:     "csrf_rejected",
			},
		},
		ChangePassword: ChangePasswordDeps{
			Common:        common,
			Attempt:       attempt,
			Session:       sess,
			MinStrength:   2,
			SuccessNotice: "Password updated successfully!",
			LookupByID:    h.accounts.LookupByID,
			Strength: func(secret string, _ ...string) int {
				if len(secret) < 12 {
					return 1
				}
				return 3
			},
			HashPassword: func(secret string) (string, error) {
				return plainHash(secret), nil
			},
			UpdateCredential: h.accounts.UpdateCredential,
			Events: ChangePasswordEvents{
				PasswordChangeSuccess: "password_changed",
				PasswordChangeFailure: "password_change_failed",
				CSRFRejected:          "csrf_rejected",
			},
		},
		Admin: AdminDeps{
			Common:            common,
			Session:           sess,
			SuccessNotice:     "User privilege updated successfully!",
			LookupByID:        h.accounts.LookupByID,
			UpdatePremiumFlag: h.accounts.UpdatePremiumFlag,
			ListByRole:        h.accounts.ListByRole,
			Events: AdminEvents{
				PremiumChanged:     "premium_changed",
				PremiumRejected:    "premium_rejected",
				UnauthorizedAccess: "unauthorized_access",
				CSRFRejected:       "csrf_rejected",
			},
		},
	}
	return h
}

func (h *harness) member(id, email, secret string) account.Account {
	changed := h.clock()
	a := account.Account{
		ID:                id,
		Email:             email,
		Username:          id,
		Role:              account.RoleUser,
		Verified:          true,
		PasswordHash:      plainHash(secret),
		PasswordChangedAt: &changed,
	}
	h.accounts.add(a)
	return a
}

func (h *harness) admin(id, email, secret string) account.Account {
	a := h.member(id, email, secret)
	a.Role = account.RoleAdmin
	h.accounts.add(a)
	return a
}

// anonymous returns a persisted anonymous session with a CSRF token.
func (h *harness) anonymous(t *testing.T) *session.Session {
	t.Helper()
	sess, err := RunResume(context.Background(), "", h.deps.Session)
	if err != nil {
		t.Fatalf("resume anonymous: %v", err)
	}
	return sess
}

// loggedIn runs a full login for email/secret and returns the new session.
func (h *harness) loggedIn(t *testing.T, email, secret string) *session.Session {
	t.Helper()
	anon := h.anonymous(t)
	res, err := RunLogin(context.Background(), anon, LoginRequest{
		Email:     email,
		Password:  secret,
		CSRFToken: anon.CSRFToken,
	}, h.deps.Login)
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return res.Session
}
