// Package session provides Redis-backed session bindings: the server-side
// association between an opaque session identifier and a user id.
//
// # Key layout
//
//	<prefix>:<sessionID>     binary-encoded [Binding], TTL = remaining lifetime
//	<prefix>:u:<userID>      set of live session ids for the user
//
// The per-user set lets the Authority drop every binding of a user when the
// account is deactivated or its password changes.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Binding] model. It
// does NOT interpret session tokens, look up users or evaluate roles.
//
// # What this package must NOT do
//
//   - Import catalogAuth or jwt (no upward imports).
//   - Store credential material in [Binding] fields.
package session
