// Package session provides the session model and its Redis-backed persistence.
//
// # Binary encoding
//
// Sessions are stored as a compact versioned binary payload (see [Encode]).
// The session id is the Redis key and is not repeated inside the payload.
//
// # Architecture boundaries
//
// This package owns the [Store] (get, save, rotate, delete) and the [Session]
// model with its flash and inactivity helpers. Timeout policy, identity
// regeneration and CSRF issuance are decided by the engine.
//
// # What this package must NOT do
//
//   - Import novelAuth, jwt or account (no upward imports).
//   - Store plaintext secrets or password hashes in [Session] fields.
package session
