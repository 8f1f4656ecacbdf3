// Package rate provides the Redis-backed failed-login throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - al:  login per-username
//   - ali: login per-IP
//
// # What this package must NOT do
//
//   - Decide what counts as a failed attempt (the Authority does).
//   - Be imported outside the catalogAuth module.
package rate
