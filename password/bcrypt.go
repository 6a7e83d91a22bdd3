package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// Bcrypt checks digests written by PHP's password_hash and other bcrypt
// producers. New hashes are never bcrypt; Hash exists for fixtures and the
// operator CLI.
type Bcrypt struct {
	Cost int
}

// Hash returns a bcrypt digest at b.Cost (bcrypt.DefaultCost when zero).
func (b Bcrypt) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	out, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify reports whether secret matches encoded.
func (Bcrypt) Verify(secret, encoded string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(secret))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		// Such a secret can never have been stored.
		return false, nil
	default:
		return false, malformed(err.Error())
	}
}

func isBcrypt(encoded string) bool {
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(encoded, p) {
			return true
		}
	}
	return false
}
