package password

import (
	"errors"
	"strings"
)

var (
	// ErrMalformedHash is returned when a stored digest is empty or cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrEmptySecret is returned when asked to hash an empty secret.
	ErrEmptySecret = errors.New("empty secret")
)

// Hasher hashes new secrets with Argon2id and verifies both Argon2id and
// legacy bcrypt digests, dispatching on the PHC prefix.
type Hasher struct {
	argon  *Argon2
	legacy Bcrypt
}

// NewHasher returns a Hasher producing Argon2id digests with p.
func NewHasher(p Argon2Params) (*Hasher, error) {
	a, err := NewArgon2(p)
	if err != nil {
		return nil, err
	}
	return &Hasher{argon: a}, nil
}

// Hash returns an Argon2id digest of secret.
func (h *Hasher) Hash(secret string) (string, error) {
	return h.argon.Hash(secret)
}

// Verify compares secret against encoded in constant time.
func (h *Hasher) Verify(secret, encoded string) (bool, error) {
	switch {
	case encoded == "":
		return false, ErrMalformedHash
	case strings.HasPrefix(encoded, argon2idPrefix):
		return h.argon.Verify(secret, encoded)
	case isBcrypt(encoded):
		return h.legacy.Verify(secret, encoded)
	default:
		return false, malformed("unknown hash scheme")
	}
}
