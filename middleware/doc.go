// Package middleware adapts a catalogAuth.Authority to net/http.
//
// # Handlers
//
//   - [Authenticate] resolves the session token (cookie or Bearer header)
//     and attaches the principal to the request context. Anonymous requests
//     pass through.
//   - [RequireAuth] answers 401 "Authentication required" without a live
//     session.
//   - [RequireRole] additionally answers 403 "Insufficient permissions" when
//     the caller's role is not allowed.
//
// Error bodies are JSON objects with a single "message" field. Decisions are
// made by the Authority; this package only translates them to HTTP.
package middleware
