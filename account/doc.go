// Package account defines the account record and the credential store
// contract the engine depends on.
//
// # Architecture boundaries
//
// This package owns data shapes only. Lockout arithmetic lives in
// internal/lockout, orchestration in internal/flows, and concrete storage in
// store/sqlstore.
//
// # What this package must NOT do
//
//   - Import any other novelAuth package.
//   - Carry plaintext secrets. PasswordHash is the only credential field.
package account
