package identity

import (
	"errors"
	"sync"

	"myauth/cmd/security/password"
)

// Passwords adapts security/password to the hash/verify capability used by signup and login.
type Passwords struct {
	cfg password.Config

	dummyOnce sync.Once
	dummy     string
}

// NewPasswords returns a Passwords using cfg.
func NewPasswords(cfg password.Config) *Passwords {
	return &Passwords{cfg: cfg}
}

// PasswordsFromEnv loads the password config from the environment.
func PasswordsFromEnv() (*Passwords, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	return NewPasswords(cfg), nil
}

// Validate checks plain against the password policy.
func (p *Passwords) Validate(plain string) error {
	return p.cfg.Validate(plain)
}

// HashPassword returns an Argon2id PHC string for plain.
func (p *Passwords) HashPassword(plain string) (string, error) {
	return p.cfg.Hash(plain)
}

// VerifyPassword reports whether plain matches encoded (Argon2id or bcrypt).
// An unusable stored hash is reported as a mismatch wrapped in the returned error.
func (p *Passwords) VerifyPassword(plain, encoded string) (bool, error) {
	ok, err := p.cfg.Verify(encoded, plain)
	if err != nil {
		if errors.Is(err, password.ErrInvalidHash) {
			return false, OpError{Op: "identity.VerifyPassword", Kind: ErrInvalidInput, Msg: "unusable password hash"}
		}
		return false, err
	}
	return ok, nil
}

// NeedsRehash reports whether encoded should be upgraded after a successful login.
func (p *Passwords) NeedsRehash(encoded string) bool {
	return p.cfg.NeedsRehash(encoded)
}

// DummyHash returns a valid hash used to equalize timing for unknown accounts.
func (p *Passwords) DummyHash() string {
	p.dummyOnce.Do(func() {
		cfg := p.cfg
		cfg.Policy.RejectVeryWeak = false
		cfg.Policy.MinLength = 1
		h, err := cfg.Hash("myauth-timing-equalizer")
		if err == nil {
			p.dummy = h
		}
	})
	return p.dummy
}
