package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	argon2idPrefix        = "$argon2id$"
)

// Argon2Params are the cost parameters for new Argon2id hashes.
type Argon2Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns the parameters used for new hashes unless
// configured otherwise (64 MiB, 3 passes, 2 lanes).
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Validate rejects parameters below the supported floor.
func (p Argon2Params) Validate() error {
	if p.Memory < minMemoryKB {
		return errors.New("argon2 memory must be >= 8192 KB")
	}
	if p.Time < minTimeCost {
		return errors.New("argon2 time must be >= 1")
	}
	if p.Parallelism < minParallelism {
		return errors.New("argon2 parallelism must be >= 1")
	}
	if p.SaltLength < minSaltLength {
		return errors.New("argon2 salt length must be >= 16")
	}
	if p.KeyLength < minKeyLength {
		return errors.New("argon2 key length must be >= 16")
	}
	return nil
}

// Argon2 produces and checks PHC-encoded Argon2id digests.
type Argon2 struct {
	params Argon2Params
}

// NewArgon2 validates p and returns a ready hasher.
func NewArgon2(p Argon2Params) (*Argon2, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Argon2{params: p}, nil
}

// Hash derives a salted digest of secret. Bytes are used exactly as given.
func (a *Argon2) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}

	salt := make([]byte, a.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(secret), salt, a.params.Time, a.params.Memory, a.params.Parallelism, a.params.KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		a.params.Memory,
		a.params.Time,
		a.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether secret matches encoded. A digest that cannot be
// parsed yields an error wrapping [ErrMalformedHash].
func (a *Argon2) Verify(secret, encoded string) (bool, error) {
	d, err := decodeArgon2(encoded)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(secret), d.salt, d.time, d.memory, d.parallelism, uint32(len(d.key)))
	return subtle.ConstantTimeCompare(key, d.key) == 1, nil
}

type argon2Digest struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func decodeArgon2(encoded string) (*argon2Digest, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return nil, malformed("not an argon2id PHC string")
	}

	version, err := strconv.Atoi(strings.TrimPrefix(fields[2], "v="))
	if err != nil || !strings.HasPrefix(fields[2], "v=") {
		return nil, malformed("bad version field")
	}
	if version != argon2.Version {
		return nil, malformed("unsupported argon2 version")
	}

	d := &argon2Digest{}
	if err := d.parseCost(fields[3]); err != nil {
		return nil, err
	}

	if d.salt, err = decodeB64(fields[4]); err != nil || len(d.salt) < int(minSaltLength) {
		return nil, malformed("bad salt")
	}
	if d.key, err = decodeB64(fields[5]); err != nil || len(d.key) < int(minKeyLength) {
		return nil, malformed("bad key")
	}
	return d, nil
}

func (d *argon2Digest) parseCost(field string) error {
	var seen int
	for _, pair := range strings.Split(field, ",") {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return malformed("bad cost entry")
		}
		switch name {
		case "m":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || uint32(v) < minMemoryKB {
				return malformed("bad memory cost")
			}
			d.memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || uint32(v) < minTimeCost {
				return malformed("bad time cost")
			}
			d.time = uint32(v)
		case "p":
			v, err := strconv.ParseUint(raw, 10, 8)
			if err != nil || uint8(v) < minParallelism {
				return malformed("bad parallelism")
			}
			d.parallelism = uint8(v)
		default:
			return malformed("unknown cost entry")
		}
		seen++
	}
	if seen != 3 || d.memory == 0 || d.time == 0 || d.parallelism == 0 {
		return malformed("incomplete cost field")
	}
	return nil
}

// decodeB64 accepts both padded and unpadded standard base64; PHC strings in
// the wild use either.
func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedHash, reason)
}
