package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/novelAuth/account"
)

func newSQLiteStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	db, err := Open(SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(context.Background(), db, SQLite))
	return New(db, SQLite), db
}

func seed(t *testing.T, s *Store, a account.Account) account.Account {
	t.Helper()
	require.NoError(t, s.Create(context.Background(), &a))
	return a
}

func member(email string) account.Account {
	return account.Account{
		Email:        email,
		Username:     email[:1],
		Role:         account.RoleUser,
		Verified:     true,
		PasswordHash: "$argon2id$placeholder",
	}
}

func TestCreateAndLookup(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()

	changed := time.Unix(1_700_000_000, 0).UTC()
	a := member("alice@example.com")
	a.PasswordChangedAt = &changed
	a = seed(t, s, a)
	require.NotEmpty(t, a.ID)

	got, err := s.LookupByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)
	require.Equal(t, account.RoleUser, got.Role)
	require.True(t, got.Verified)
	require.False(t, got.Premium)
	require.NotNil(t, got.PasswordChangedAt)
	require.True(t, got.PasswordChangedAt.Equal(changed))
	require.Nil(t, got.UnlockAt)

	byID, err := s.LookupByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, got, byID)

	_, err = s.LookupByEmail(ctx, "ghost@example.com")
	require.ErrorIs(t, err, account.ErrNotFound)
	_, err = s.LookupByID(ctx, "missing")
	require.ErrorIs(t, err, account.ErrNotFound)
}

func TestCreateDuplicateEmail(t *testing.T) {
	s, _ := newSQLiteStore(t)
	seed(t, s, member("alice@example.com"))

	dup := member("alice@example.com")
	err := s.Create(context.Background(), &dup)
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestUpdateTrialStateCompareAndSwap(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()
	a := seed(t, s, member("alice@example.com"))

	unlock := time.Unix(1_700_000_040, 0).UTC()
	ok, err := s.UpdateTrialState(ctx, a.ID, 0, 3, &unlock)
	require.NoError(t, err)
	require.True(t, ok)

	// Stale expectation loses.
	ok, err = s.UpdateTrialState(ctx, a.ID, 0, 1, nil)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := s.LookupByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 3, got.TrialCount)
	require.NotNil(t, got.UnlockAt)
	require.True(t, got.UnlockAt.Equal(unlock))

	ok, err = s.UpdateTrialState(ctx, a.ID, 3, 0, nil)
	require.NoError(t, err)
	require.True(t, ok)
	got, err = s.LookupByID(ctx, a.ID)
	require.NoError(t, err)
	require.Zero(t, got.TrialCount)
	require.Nil(t, got.UnlockAt)
}

func TestUpdateTrialStateConcurrentIncrementsAllLand(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()
	a := seed(t, s, member("alice@example.com"))

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				cur, err := s.LookupByID(ctx, a.ID)
				if err != nil {
					t.Errorf("lookup: %v", err)
					return
				}
				ok, err := s.UpdateTrialState(ctx, a.ID, cur.TrialCount, cur.TrialCount+1, nil)
				if err != nil {
					t.Errorf("update: %v", err)
					return
				}
				if ok {
					return
				}
			}
		}()
	}
	wg.Wait()

	got, err := s.LookupByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, workers, got.TrialCount)
}

func TestUpdateCredential(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()
	a := member("alice@example.com")
	a.TrialCount = 2
	a = seed(t, s, a)

	now := time.Unix(1_700_100_000, 0).UTC()
	ok, err := s.UpdateCredential(ctx, a.ID, "wrong-expected", "$argon2id$new", now)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = s.UpdateCredential(ctx, a.ID, a.PasswordHash, "$argon2id$new", now)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := s.LookupByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "$argon2id$new", got.PasswordHash)
	require.NotNil(t, got.PasswordChangedAt)
	require.True(t, got.PasswordChangedAt.Equal(now))
	require.Zero(t, got.TrialCount)
	require.Nil(t, got.UnlockAt)
}

func TestUpdatePremiumFlagOnlyMembers(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()
	user := seed(t, s, member("alice@example.com"))
	admin := member("root@example.com")
	admin.Role = account.RoleAdmin
	admin = seed(t, s, admin)

	require.NoError(t, s.UpdatePremiumFlag(ctx, user.ID, true))
	got, err := s.LookupByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, got.Premium)

	require.ErrorIs(t, s.UpdatePremiumFlag(ctx, admin.ID, true), account.ErrNotFound)
	require.ErrorIs(t, s.UpdatePremiumFlag(ctx, "missing", true), account.ErrNotFound)

	got, err = s.LookupByID(ctx, admin.ID)
	require.NoError(t, err)
	require.False(t, got.Premium)
}

func TestListByRole(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()
	b := member("bob@example.com")
	b.Username = "bob"
	seed(t, s, b)
	a := member("alice@example.com")
	a.Username = "alice"
	seed(t, s, a)
	admin := member("root@example.com")
	admin.Role = account.RoleAdmin
	seed(t, s, admin)

	users, err := s.ListByRole(ctx, account.RoleUser)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "alice", users[0].Username)
	require.Equal(t, "bob", users[1].Username)

	none, err := New(mustDB(t), SQLite).ListByRole(ctx, account.RoleUser)
	require.NoError(t, err)
	require.Empty(t, none)
}

func mustDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(context.Background(), db, SQLite))
	return db
}

func TestCreateRejectsInvalidRole(t *testing.T) {
	s, _ := newSQLiteStore(t)
	a := member("alice@example.com")
	a.Role = "owner"
	err := s.Create(context.Background(), &a)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrDuplicate))
}

func TestMigrateIsIdempotent(t *testing.T) {
	_, db := newSQLiteStore(t)
	require.NoError(t, Migrate(context.Background(), db, SQLite))
}
