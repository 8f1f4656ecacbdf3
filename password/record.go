package password

import (
	"encoding/hex"
	"errors"
	"strings"
)

const recordSeparator = ":"

// ErrMalformedRecord is returned by ParseRecord when a stored credential
// record cannot be split or decoded.
var ErrMalformedRecord = errors.New("malformed credential record")

// Record is a parsed credential record.
type Record struct {
	Hash []byte
	Salt []byte
}

// String serializes the record as hex(hash):hex(salt).
func (r Record) String() string {
	return hex.EncodeToString(r.Hash) + recordSeparator + hex.EncodeToString(r.Salt)
}

// ParseRecord splits encoded on the first colon and decodes both halves.
// Either half being empty or not valid hex yields ErrMalformedRecord.
func ParseRecord(encoded string) (Record, error) {
	hashHex, saltHex, found := strings.Cut(encoded, recordSeparator)
	if !found || hashHex == "" || saltHex == "" {
		return Record{}, ErrMalformedRecord
	}

	hash, err := hex.DecodeString(hashHex)
	if err != nil {
		return Record{}, ErrMalformedRecord
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return Record{}, ErrMalformedRecord
	}

	return Record{Hash: hash, Salt: salt}, nil
}
