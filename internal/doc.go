// Package internal contains helpers that are private to novelAuth, chiefly
// the session identifier and CSRF token generators.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - csrf: per-session anti-forgery token issue and check
//   - flows: orchestrators for every Engine operation
//   - lockout: trial counter escalation arithmetic
//   - rate: Redis-backed per-IP login throttle
//
// # What this package must NOT do
//
//   - Export types that appear in the public novelAuth API.
//   - Be imported by any package outside the novelAuth module.
package internal
