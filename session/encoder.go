package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const bindingFormatVersion = 1

// Encode serializes b into the compact binary form stored in Redis.
// The session id is the Redis key and is not part of the payload.
func Encode(b *Binding) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(bindingFormatVersion)

	if b.UserID == "" {
		return nil, errors.New("userID required")
	}
	if len(b.UserID) > 255 {
		return nil, errors.New("userID too long")
	}
	buf.WriteByte(byte(len(b.UserID)))
	buf.WriteString(b.UserID)

	if err := binary.Write(&buf, binary.BigEndian, b.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, b.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a payload produced by Encode.
func Decode(data []byte) (*Binding, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != bindingFormatVersion {
		return nil, errors.New("invalid binding version")
	}

	userLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if userLen == 0 {
		return nil, errors.New("empty userID")
	}
	userID := make([]byte, userLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, err
	}

	b := &Binding{UserID: string(userID)}
	if err := binary.Read(reader, binary.BigEndian, &b.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &b.ExpiresAt); err != nil {
		return nil, err
	}
	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in binding")
	}

	return b, nil
}
