package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Scheme identifies the algorithm of an encoded hash.
type Scheme string

const (
	SchemeArgon2id Scheme = "argon2id"
	SchemeBcrypt   Scheme = "bcrypt"
	SchemeUnknown  Scheme = "unknown"
)

// SchemeOf reports which algorithm produced encoded.
func SchemeOf(encoded string) Scheme {
	switch {
	case strings.HasPrefix(encoded, argon2Prefix):
		return SchemeArgon2id
	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		return SchemeBcrypt
	default:
		return SchemeUnknown
	}
}

// Verify reports whether password matches encoded.
// It returns (false, nil) on mismatch and (false, ErrInvalidHash) when encoded cannot be used.
func (c Config) Verify(encoded, password string) (bool, error) {
	// Oversized input is a mismatch, not an error; it never reaches the KDF.
	if c.Policy.MaxLength > 0 && len(password) > c.Policy.MaxLength*4 {
		return false, nil
	}

	switch SchemeOf(encoded) {
	case SchemeArgon2id:
		return c.verifyArgon2id(encoded, password)
	case SchemeBcrypt:
		return verifyBcrypt(encoded, password)
	default:
		return false, ErrInvalidHash
	}
}

// NeedsRehash reports whether encoded should be replaced by a fresh Argon2id hash
// with the current parameters.
func (c Config) NeedsRehash(encoded string) bool {
	if SchemeOf(encoded) != SchemeArgon2id {
		return true
	}
	p, _, _, err := decodeArgon2id(encoded)
	if err != nil {
		return true
	}
	return p.MemoryKiB != c.Params.MemoryKiB ||
		p.Iterations != c.Params.Iterations ||
		p.Parallelism != c.Params.Parallelism ||
		p.KeyLength != c.Params.KeyLength
}

func verifyBcrypt(encoded, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, ErrInvalidHash
	}
}
