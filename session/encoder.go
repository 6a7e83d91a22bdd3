package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const schemaVersion = 1

const (
	flagPremium byte = 1 << iota
	flagForcePasswordReset
)

// Encode serializes s. SessionID is not part of the payload; it is the key.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(96 + len(s.Flash.Message))

	buf.WriteByte(schemaVersion)

	for _, f := range []struct {
		name, value string
	}{
		{"userID", s.UserID},
		{"username", s.Username},
		{"role", s.Role},
		{"csrf token", s.CSRFToken},
	} {
		if len(f.value) > 255 {
			return nil, fmt.Errorf("%s too long", f.name)
		}
		buf.WriteByte(byte(len(f.value)))
		buf.WriteString(f.value)
	}

	var flags byte
	if s.Premium {
		flags |= flagPremium
	}
	if s.ForcePasswordReset {
		flags |= flagForcePasswordReset
	}
	buf.WriteByte(flags)

	buf.WriteByte(byte(s.Flash.Kind))
	if len(s.Flash.Message) > 0xFFFF {
		return nil, errors.New("flash message too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(s.Flash.Message))); err != nil {
		return nil, err
	}
	buf.WriteString(s.Flash.Message)

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.LastActivity); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a payload written by [Encode].
func Decode(data []byte) (*Session, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != schemaVersion {
		return nil, fmt.Errorf("unsupported session schema version %d", version)
	}

	s := &Session{}
	for _, dst := range []*string{&s.UserID, &s.Username, &s.Role, &s.CSRFToken} {
		if *dst, err = readString8(r); err != nil {
			return nil, err
		}
	}

	flags, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	s.Premium = flags&flagPremium != 0
	s.ForcePasswordReset = flags&flagForcePasswordReset != 0

	kind, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if FlashKind(kind) > FlashSuccess {
		return nil, errors.New("invalid flash kind")
	}
	s.Flash.Kind = FlashKind(kind)

	var msgLen uint16
	if err := binary.Read(r, binary.BigEndian, &msgLen); err != nil {
		return nil, err
	}
	msg := make([]byte, msgLen)
	if _, err := io.ReadFull(r, msg); err != nil {
		return nil, err
	}
	s.Flash.Message = string(msg)

	if err := binary.Read(r, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &s.LastActivity); err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, errors.New("trailing session bytes")
	}

	return s, nil
}

func readString8(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
