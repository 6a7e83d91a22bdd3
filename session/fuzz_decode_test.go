package session

import (
	"reflect"
	"testing"
)

// FuzzSessionDecodeRoundTrip feeds arbitrary payloads to the decoder. It must never
// panic, and anything it accepts must survive a re-encode unchanged.
func FuzzSessionDecodeRoundTrip(f *testing.F) {
	sess := &Session{
		UserID:       "42",
		Username:     "alice",
		Role:         "admin",
		Premium:      true,
		CSRFToken:    "tok",
		Flash:        Flash{Kind: FlashError, Message: "Session expired. Please log in again."},
		CreatedAt:    1700000000,
		LastActivity: 1700000300,
	}
	encoded, err := Encode(sess)
	if err == nil {
		f.Add(encoded)
		f.Add(encoded[:len(encoded)/2])
	}
	f.Add([]byte{})
	f.Add([]byte{schemaVersion})
	f.Add([]byte{255, 255, 255})

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := Decode(data)
		if err != nil {
			return
		}
		again, err := Encode(s)
		if err != nil {
			return
		}
		back, err := Decode(again)
		if err != nil {
			t.Fatalf("re-encoded payload rejected: %v", err)
		}
		if !reflect.DeepEqual(s, back) {
			t.Fatalf("round trip changed session: %+v vs %+v", s, back)
		}
	})
}
