package session

import "time"

// Binding maps an opaque session identifier to the user it authenticates.
//
// Bindings carry no credential material and no role: the role is re-read
// from the user directory on every resolution so that role changes take
// effect immediately.
type Binding struct {
	SessionID string
	UserID    string

	CreatedAt int64
	ExpiresAt int64
}

// Expired reports whether the absolute lifetime of b has elapsed at now.
func (b *Binding) Expired(now time.Time) bool {
	return now.Unix() >= b.ExpiresAt
}
