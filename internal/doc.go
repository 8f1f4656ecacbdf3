// Package internal holds helpers private to catalogAuth: session id
// generation and the audit and rate sub-packages.
//
// # Sub-packages
//
//   - audit: synchronous or buffered event dispatch to a Sink
//   - rate: Redis-backed failed-login counters
//
// Nothing here appears in the public catalogAuth API.
package internal
