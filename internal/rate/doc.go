// Package rate provides the Redis-backed per-IP failed-login throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + EXPIRE on the first hit. Keys are
// "nli:<ip>". The throttle is checked before the human-verification call
// and never replaces the per-account lockout.
//
// # What this package must NOT do
//
//   - Touch account state.
//   - Be imported outside the novelAuth module.
package rate
