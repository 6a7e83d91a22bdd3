// Package flows contains the orchestrators behind every Engine operation.
//
// Each flow function (RunAttempt, RunLogin, RunChangePassword, RunSetPremium,
// RunResume and friends) accepts a typed dependency struct of plain funcs and
// returns results without side effects beyond those dependencies. The Engine
// fills the structs once at build time and stays thin.
//
// # Architecture boundaries
//
// Flows coordinate the credential store, session store, lockout policy, CSRF
// service, per-IP throttle, audit dispatcher and metrics. They do NOT own any
// of these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import novelAuth (to avoid import cycles).
//   - Log or audit secrets or password hashes.
package flows
