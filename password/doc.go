// Package password implements credential hashing and verification with PBKDF2-HMAC-SHA512.
//
// # Output format
//
// A credential record is the derived key and the salt, hex encoded and joined
// by a single colon:
//
//	<128 hex chars of derived key>:<32 hex chars of salt>
//
// The iteration count is not part of the record; every [Hasher] that reads a
// record must be configured with the iteration count that wrote it.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (minimum
// length) is enforced by the Authority.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive records.
//   - Import any other catalogAuth package.
//   - Log plaintext passwords, derived keys or salts.
package password
