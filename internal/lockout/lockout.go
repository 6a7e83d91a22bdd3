package lockout

import (
	"errors"
	"time"
)

// Policy holds the escalation parameters. The zero value is not usable; start
// from [DefaultPolicy].
type Policy struct {
	// Every is the failure period: only every Every-th consecutive failure locks.
	Every int
	// Base is multiplied by 2^trials to get the lock duration.
	Base time.Duration
	// Max caps a single lock window.
	Max time.Duration
}

// State is the persisted per-account trial state.
type State struct {
	Trials   int
	UnlockAt *time.Time
}

// DefaultPolicy locks on every third failure for min(5s * 2^trials, 24h).
func DefaultPolicy() Policy {
	return Policy{
		Every: 3,
		Base:  5 * time.Second,
		Max:   24 * time.Hour,
	}
}

// Validate reports whether p can be evaluated.
func (p Policy) Validate() error {
	if p.Every < 1 {
		return errors.New("lockout period must be >= 1")
	}
	if p.Base <= 0 {
		return errors.New("lockout base duration must be > 0")
	}
	if p.Max < p.Base {
		return errors.New("lockout max duration must be >= base duration")
	}
	return nil
}

// Locked reports whether s is inside a lockout window at now, and how long
// remains. A stale unlock time left behind on a non-locking trial count is
// ignored.
func (p Policy) Locked(s State, now time.Time) (bool, time.Duration) {
	if s.UnlockAt == nil || !p.locking(s.Trials) {
		return false, 0
	}
	if !now.Before(*s.UnlockAt) {
		return false, 0
	}
	return true, s.UnlockAt.Sub(now)
}

// Duration returns min(Base * 2^trials, Max).
func (p Policy) Duration(trials int) time.Duration {
	if trials < 0 {
		trials = 0
	}
	d := p.Base
	for i := 0; i < trials; i++ {
		if d >= p.Max {
			return p.Max
		}
		d *= 2
	}
	if d > p.Max {
		return p.Max
	}
	return d
}

// Fail returns the state after one more failed verification.
func (p Policy) Fail(s State, now time.Time) State {
	next := State{Trials: s.Trials + 1}
	if p.locking(next.Trials) {
		unlockAt := now.Add(p.Duration(next.Trials))
		next.UnlockAt = &unlockAt
	}
	return next
}

// Succeed returns the state after a successful verification.
func (p Policy) Succeed() State {
	return State{}
}

// Triggered reports whether moving into s started a new lockout window.
func (p Policy) Triggered(s State) bool {
	return s.UnlockAt != nil && p.locking(s.Trials)
}

func (p Policy) locking(trials int) bool {
	return trials > 0 && trials%p.Every == 0
}

// Equal reports whether two states would persist identically.
func Equal(a, b State) bool {
	if a.Trials != b.Trials {
		return false
	}
	if a.UnlockAt == nil || b.UnlockAt == nil {
		return a.UnlockAt == nil && b.UnlockAt == nil
	}
	return a.UnlockAt.Equal(*b.UnlockAt)
}
