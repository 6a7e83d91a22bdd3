package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// SessionID is 128 bits from crypto/rand.
type SessionID [16]byte

const csrfTokenSize = 32

func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) String() string {
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// ParseSessionID decodes an id produced by [SessionID.String].
func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, err
	}
	if len(raw) != len(sid) {
		return sid, errors.New("invalid session id size")
	}

	copy(sid[:], raw)
	return sid, nil
}

// NewCSRFToken returns a fresh 256-bit anti-forgery token, base64url encoded.
func NewCSRFToken() (string, error) {
	var raw [csrfTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}
