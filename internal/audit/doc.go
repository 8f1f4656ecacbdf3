// Package audit implements event dispatching for security-relevant operations.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, zap, no-op).
//   - [Dispatcher]: inline or buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: credential-free record with timestamp, type, username and outcome.
//
// # Architecture boundaries
//
// This package owns event delivery. It does NOT decide which events to emit;
// that responsibility belongs to the Authority.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import catalogAuth or any sibling internal package.
//   - Carry passwords, credential records, tokens or session ids.
package audit
