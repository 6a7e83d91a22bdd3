package account

import (
	"errors"
	"time"
)

// ErrNotFound is returned by a [Store] when no account matches the lookup key.
var ErrNotFound = errors.New("account not found")

// Role is the coarse authorization level snapshotted into a session.
type Role string

const (
	// RoleUser is a regular member account. Only members can be granted premium.
	RoleUser Role = "user"
	// RoleAdmin may toggle the premium flag of member accounts.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Account is the identity and credential state of one user.
//
// UnlockAt is only meaningful when TrialCount is a non-zero multiple of the
// lockout period; it must be nil in every other state.
type Account struct {
	ID       string
	Email    string
	Username string
	Role     Role
	Premium  bool
	Verified bool

	PasswordHash      string
	PasswordChangedAt *time.Time

	TrialCount int
	UnlockAt   *time.Time
}

// PasswordAge returns how long ago the password was last changed. An unknown
// change time counts as "just changed".
func (a Account) PasswordAge(now time.Time) time.Duration {
	if a.PasswordChangedAt == nil {
		return 0
	}
	age := now.Sub(*a.PasswordChangedAt)
	if age < 0 {
		return 0
	}
	return age
}

// Summary is the read-only projection of a member account shown to admins.
type Summary struct {
	ID       string
	Username string
	Email    string
	Premium  bool
}

// Summarize projects a into its admin listing form.
func (a Account) Summarize() Summary {
	return Summary{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
		Premium:  a.Premium,
	}
}
