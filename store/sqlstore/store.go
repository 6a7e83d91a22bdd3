package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/novelAuth/account"
)

// ErrDuplicate is returned by [Store.Create] when the email or id is taken.
var ErrDuplicate = errors.New("account already exists")

// DBTX is the subset of database/sql used by the store.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements [account.Store] on a relational users table.
type Store struct {
	db      DBTX
	dialect Dialect
}

var _ account.Store = (*Store)(nil)

// New wraps an open handle. The schema must already exist (see [Migrate]).
func New(db DBTX, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

const selectAccount = `SELECT id, email, username, role, is_premium, is_verified,
       password_hash, password_changed_at, trial_count, unlock_at
  FROM users`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (account.Account, error) {
	var (
		a         account.Account
		role      string
		changedAt sql.NullInt64
		unlockAt  sql.NullInt64
	)
	err := row.Scan(&a.ID, &a.Email, &a.Username, &role, &a.Premium, &a.Verified,
		&a.PasswordHash, &changedAt, &a.TrialCount, &unlockAt)
	if err != nil {
		return account.Account{}, err
	}
	a.Role = account.Role(role)
	a.PasswordChangedAt = fromUnix(changedAt)
	a.UnlockAt = fromUnix(unlockAt)
	return a, nil
}

func (s *Store) lookup(ctx context.Context, where string, arg any) (account.Account, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(selectAccount+" WHERE "+where+" = ?"), arg)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (s *Store) LookupByEmail(ctx context.Context, email string) (account.Account, error) {
	return s.lookup(ctx, "email", email)
}

func (s *Store) LookupByID(ctx context.Context, id string) (account.Account, error) {
	return s.lookup(ctx, "id", id)
}

// UpdateTrialState is a compare-and-swap on trial_count.
func (s *Store) UpdateTrialState(ctx context.Context, id string, expectedTrials, trials int, unlockAt *time.Time) (bool, error) {
	query := `UPDATE users SET trial_count = ?, unlock_at = ?
	 WHERE id = ? AND trial_count = ?`

	res, err := s.db.ExecContext(ctx, s.dialect.rebind(query), trials, toUnix(unlockAt), id, expectedTrials)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affectedOne(res)
}

// UpdateCredential is a compare-and-swap on password_hash that writes the
// new hash, the change time and a cleared trial state in one statement.
func (s *Store) UpdateCredential(ctx context.Context, id, expectedHash, hash string, changedAt time.Time) (bool, error) {
	query := `UPDATE users
	   SET password_hash = ?, password_changed_at = ?, trial_count = 0, unlock_at = NULL
	 WHERE id = ? AND password_hash = ?`

	res, err := s.db.ExecContext(ctx, s.dialect.rebind(query), hash, changedAt.Unix(), id, expectedHash)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affectedOne(res)
}

// UpdatePremiumFlag only touches member accounts; an admin or missing id
// reports account.ErrNotFound.
func (s *Store) UpdatePremiumFlag(ctx context.Context, id string, premium bool) error {
	query := `UPDATE users SET is_premium = ? WHERE id = ? AND role = ?`

	res, err := s.db.ExecContext(ctx, s.dialect.rebind(query), premium, id, string(account.RoleUser))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return err
	}
	if !ok {
		return account.ErrNotFound
	}
	return nil
}

func (s *Store) ListByRole(ctx context.Context, role account.Role) ([]account.Account, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(selectAccount+" WHERE role = ? ORDER BY username, id"), string(role))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]account.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Create inserts a, assigning a UUID when a.ID is empty. Registration is
// handled elsewhere; this exists for seeding and administration tools.
func (s *Store) Create(ctx context.Context, a *account.Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Role == "" {
		a.Role = account.RoleUser
	}
	if !a.Role.Valid() {
		return fmt.Errorf("invalid role %q", a.Role)
	}

	query := `INSERT INTO users (id, email, username, role, is_premium, is_verified,
	       password_hash, password_changed_at, trial_count, unlock_at)
	 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, s.dialect.rebind(query),
		a.ID, a.Email, a.Username, string(a.Role), a.Premium, a.Verified,
		a.PasswordHash, toUnix(a.PasswordChangedAt), a.TrialCount, toUnix(a.UnlockAt))
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func toUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func fromUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
