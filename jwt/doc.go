// Package jwt signs and verifies session tokens: compact JWTs that carry an
// opaque session id to the client.
//
// A valid token is necessary but not sufficient for authentication; the
// server-side session binding it names must still exist. Tokens therefore
// never carry roles or any other authorization data.
package jwt
