// Package catalogAuth authenticates users of a dataset catalog platform and
// gates its operations by role.
//
// Accounts live behind a [UserDirectory] (see the directory package for the
// in-memory and PostgreSQL implementations). Passwords are stored only as
// PBKDF2-SHA512 credential records. A successful [Authority.Login] or
// [Authority.Register] binds a fresh server-side session in Redis and hands
// the client a signed token naming it; [Authority.Logout] destroys the
// binding. Roles are user, uploader and admin, checked per call with
// [Authority.RequireRole].
//
// An [Authority] is built once through [Builder.Build] and is safe for
// concurrent use.
//
// # Architecture boundaries
//
// This package is the public surface. Session encoding lives in session/,
// token signing in jwt/, hashing in password/, and audit dispatch and login
// throttling under internal/. HTTP concerns live in middleware/ and httpapi/.
//
// # What this package must NOT do
//
//   - Return or log password hashes, plaintext passwords, tokens or session ids.
//   - Seed any account on its own. The first admin is provisioned by the
//     operator through [Authority.EnsureAdmin].
//   - Import any sub-package that re-imports catalogAuth.
package catalogAuth
