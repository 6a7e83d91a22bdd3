// Package csrf issues and checks the per-session anti-forgery token.
//
// A session holds exactly one active token. Issue replaces it; Valid compares
// in constant time and never says which part of the check failed.
package csrf

import (
	"crypto/subtle"

	"github.com/MrEthical07/novelAuth/internal"
)

// Holder is the session-side storage of the active token.
type Holder interface {
	CSRF() string
	SetCSRF(token string)
}

// Issue generates a new token, stores it on h and returns it.
func Issue(h Holder) (string, error) {
	token, err := internal.NewCSRFToken()
	if err != nil {
		return "", err
	}
	h.SetCSRF(token)
	return token, nil
}

// Ensure returns the active token, issuing one when h has none.
func Ensure(h Holder) (string, error) {
	if token := h.CSRF(); token != "" {
		return token, nil
	}
	return Issue(h)
}

// Valid reports whether supplied exactly matches the active token. An absent
// token on either side is never valid.
func Valid(h Holder, supplied string) bool {
	if h == nil {
		return false
	}
	expected := h.CSRF()
	if expected == "" || supplied == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(supplied)) == 1
}
