package password

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// MinIterations is the lowest PBKDF2 iteration count NewHasher accepts.
	MinIterations = 10_000
	// DefaultIterations is used when Config.Iterations is zero.
	DefaultIterations = 210_000

	// SaltLength is the number of random salt bytes drawn per hash.
	SaltLength = 16
	// KeyLength is the derived key length in bytes.
	KeyLength = 64
)

// ErrEntropy wraps failures of the system random source.
var ErrEntropy = errors.New("random source unavailable")

// Config defines hasher cost parameters.
type Config struct {
	Iterations int
}

// Hasher derives and verifies PBKDF2-HMAC-SHA512 credential records.
//
// A Hasher is immutable after construction and safe for concurrent use.
type Hasher struct {
	iterations int
	random     io.Reader
}

// NewHasher validates cfg and returns a Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	if cfg.Iterations == 0 {
		cfg.Iterations = DefaultIterations
	}
	if cfg.Iterations < MinIterations {
		return nil, fmt.Errorf("password: iterations must be at least %d", MinIterations)
	}

	return &Hasher{iterations: cfg.Iterations, random: rand.Reader}, nil
}

// Iterations reports the configured iteration count.
func (h *Hasher) Iterations() int {
	return h.iterations
}

// Hash derives a fresh credential record for password.
//
// Every call draws a new salt, so hashing the same password twice yields two
// different records. Hash is CPU bound; its cost scales with Iterations.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, SaltLength)
	if _, err := io.ReadFull(h.random, salt); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropy, err)
	}

	return Record{Hash: h.derive(password, salt), Salt: salt}.String(), nil
}

// Verify reports whether password matches the encoded record.
//
// A malformed record is a verification failure: Verify returns false and
// never panics. The comparison of derived keys runs in constant time.
func (h *Hasher) Verify(password, encoded string) bool {
	rec, err := ParseRecord(encoded)
	if err != nil {
		return false
	}
	if len(rec.Hash) != KeyLength || len(rec.Salt) == 0 {
		return false
	}

	computed := h.derive(password, rec.Salt)
	return subtle.ConstantTimeCompare(computed, rec.Hash) == 1
}

// NeedsRehash reports whether encoded is not a record this Hasher would
// produce today (wrong key or salt length, or unparseable).
func (h *Hasher) NeedsRehash(encoded string) bool {
	rec, err := ParseRecord(encoded)
	if err != nil {
		return true
	}
	return len(rec.Hash) != KeyLength || len(rec.Salt) != SaltLength
}

func (h *Hasher) derive(password string, salt []byte) []byte {
	// Password bytes are used exactly as provided (no Unicode normalization).
	return pbkdf2.Key([]byte(password), salt, h.iterations, KeyLength, sha512.New)
}
