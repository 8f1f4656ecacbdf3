// Package httpapi is the echo HTTP boundary of a catalogAuth.Authority.
//
// Routes are mounted under /api (register, login, logout, me, users,
// upload/access) next to /healthz and an optional /metrics. Every error body
// is {"message": "..."}; the mapping from Authority errors to statuses lives
// in statusFor.
package httpapi
