// Package sqlstore is the relational credential store: a single users table
// on PostgreSQL (pgx) or SQLite (modernc), with compare-and-swap updates for
// the trial counter and the password hash.
//
// # Concurrency
//
// UpdateTrialState matches on the trial_count the caller read, and
// UpdateCredential on the password_hash it verified. A false return means
// another writer got there first; the caller reloads and decides again.
//
// Timestamps are stored as unix seconds.
package sqlstore
