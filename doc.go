// Package novelAuth authenticates users of a small web application against a
// credential store, throttles password guessing with an escalating per-account
// lockout, governs server-side session validity and enforces password
// rotation policy. An admin workflow toggles the per-account premium flag.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// novelAuth is the public surface. It exposes [Engine], [Builder], [Config],
// the sentinel errors with their [ErrorKind] classification, and value types
// (LoginRequest, MetricsSnapshot, AuditEvent, ...). Flow orchestration,
// lockout arithmetic, CSRF handling, the per-IP throttle and audit dispatch
// live under internal/ and are never exported. Credential persistence is a
// collaborator behind [account.Store]; store/sqlstore provides one.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Log, audit or return secrets or password hashes.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Import any sub-package that re-imports novelAuth (no import cycles).
//
// # Lockout contract
//
// A credential attempt against a locked account returns before any hash
// comparison and counts nothing. The trial counter is updated with a
// compare-and-swap so concurrent failures are never lost.
package novelAuth
