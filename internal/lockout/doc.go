// Package lockout implements the brute-force escalation arithmetic: which
// trial counts lock an account, for how long, and whether a stored state is
// currently inside its lockout window.
//
// # Rules
//
//   - Only every [Policy.Every]-th consecutive failure locks (default 3).
//   - The lock lasts min(Base * 2^trials, Max), doubling per failure rather
//     than per lock cycle (defaults 5s and 24h).
//   - A success resets the state to zero trials and no unlock time.
//
// # What this package must NOT do
//
//   - Perform I/O, verify passwords, or read the clock. Callers pass now.
package lockout
