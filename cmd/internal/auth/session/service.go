package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"myauth/cmd/identity"
	"myauth/cmd/security/token"
)

// maxTokenLen bounds presented tokens before any parsing.
const maxTokenLen = 8192

// Identities is the read side of the identity store used by login and refresh.
type Identities interface {
	GetUserByEmail(ctx context.Context, email string) (identity.User, error)
	GetUserByID(ctx context.Context, id string) (identity.User, error)
}

// PasswordVerifier checks a plaintext password against a stored hash.
type PasswordVerifier interface {
	VerifyPassword(plain, encoded string) (bool, error)
}

type dummyHasher interface {
	DummyHash() string
}

type rehasher interface {
	NeedsRehash(encoded string) bool
	HashPassword(plain string) (string, error)
}

type passwordUpdater interface {
	UpdatePasswordHash(ctx context.Context, id string, hash string) error
}

// Deps groups Service collaborators.
type Deps struct {
	Codec     *Codec
	Store     RefreshStore
	Users     Identities
	Passwords PasswordVerifier
	Hasher    token.Hasher
	Logger    *slog.Logger
}

// Service orchestrates login, refresh and revoke.
type Service struct {
	codec     *Codec
	store     RefreshStore
	users     Identities
	passwords PasswordVerifier
	hasher    token.Hasher
	log       *slog.Logger
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             identity.User
}

// RefreshResult is returned by a successful Refresh.
type RefreshResult struct {
	AccessToken     string
	AccessExpiresAt time.Time
	User            identity.User
}

// NewService constructs a Service. Codec, Store, Users and Passwords are required.
func NewService(d Deps) (*Service, error) {
	switch {
	case d.Codec == nil:
		return nil, fmt.Errorf("session: nil codec")
	case d.Store == nil:
		return nil, fmt.Errorf("session: nil refresh store")
	case d.Users == nil:
		return nil, fmt.Errorf("session: nil identities")
	case d.Passwords == nil:
		return nil, fmt.Errorf("session: nil password verifier")
	}
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		codec:     d.Codec,
		store:     d.Store,
		users:     d.Users,
		passwords: d.Passwords,
		hasher:    d.Hasher,
		log:       log,
	}, nil
}

// Codec returns the codec used for issuance.
func (s *Service) Codec() *Codec { return s.codec }

// Login checks credentials and account status, issues both tokens and records the refresh token.
//
// An unknown email and a wrong password both return ErrInvalidCredentials.
// Status failures return AccountStatusError.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = identity.NormalizeEmail(email)

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if identity.IsNotFound(err) || identity.IsInvalidInput(err) {
			s.burnPasswordCheck(password)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("session: lookup user: %w", err)
	}

	ok, err := s.passwords.VerifyPassword(password, u.PasswordHash)
	if err != nil {
		s.log.Warn("auth.login.hash_unusable", "user_id", u.ID, "err", err)
		return LoginResult{}, ErrInvalidCredentials
	}
	if !ok {
		return LoginResult{}, ErrInvalidCredentials
	}

	if !u.Active {
		return LoginResult{}, AccountStatusError{Status: identity.StatusInactive}
	}
	if u.Status != identity.StatusActive {
		return LoginResult{}, AccountStatusError{Status: u.Status}
	}

	s.maybeRehash(ctx, u, password)

	sub := Subject{UserID: u.ID, Email: u.Email}
	access, accessExp, err := s.codec.IssueAccess(sub)
	if err != nil {
		return LoginResult{}, err
	}
	refresh, refreshExp, err := s.codec.IssueRefresh(sub)
	if err != nil {
		return LoginResult{}, err
	}

	rec := RefreshRecord{
		TokenHash: s.hasher.Hash(refresh),
		UserID:    u.ID,
		ExpiresAt: refreshExp,
		CreatedAt: s.codec.Now(),
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return LoginResult{}, fmt.Errorf("session: record refresh token: %w", err)
	}

	return LoginResult{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		User:             u,
	}, nil
}

// Refresh redeems a refresh token for a new access token. The refresh token stays valid.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" || len(refreshToken) > maxTokenLen {
		return RefreshResult{}, ErrRefreshInvalid
	}

	res := s.codec.Verify(refreshToken)
	if !res.OK() {
		s.log.Debug("auth.refresh.verify_failed", "kind", res.Kind.String(), "err", res.Err)
		return RefreshResult{}, ErrRefreshInvalid
	}
	if res.Claims.Type != TokenRefresh {
		return RefreshResult{}, ErrRefreshInvalid
	}

	rec, err := s.store.Lookup(ctx, s.hasher.Hash(refreshToken))
	if err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return RefreshResult{}, ErrRefreshNotFound
		}
		return RefreshResult{}, fmt.Errorf("session: lookup refresh record: %w", err)
	}
	if !rec.ExpiresAt.After(s.codec.Now()) {
		return RefreshResult{}, ErrRefreshExpired
	}

	u, err := s.users.GetUserByID(ctx, rec.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			return RefreshResult{}, ErrAccountInactive
		}
		return RefreshResult{}, fmt.Errorf("session: lookup user: %w", err)
	}
	if u.Email != res.Claims.Subject {
		return RefreshResult{}, ErrRefreshInvalid
	}
	if !u.Active {
		return RefreshResult{}, AccountStatusError{Status: identity.StatusInactive}
	}
	if u.Status != identity.StatusActive {
		return RefreshResult{}, AccountStatusError{Status: u.Status}
	}

	access, accessExp, err := s.codec.IssueAccess(Subject{UserID: u.ID, Email: u.Email})
	if err != nil {
		return RefreshResult{}, err
	}
	return RefreshResult{AccessToken: access, AccessExpiresAt: accessExp, User: u}, nil
}

// Revoke deletes the record for refreshToken. Unknown tokens are not an error.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" || len(refreshToken) > maxTokenLen {
		return nil
	}
	return s.store.Delete(ctx, s.hasher.Hash(refreshToken))
}

// burnPasswordCheck spends a verify on a dummy hash so unknown emails take as long as known ones.
func (s *Service) burnPasswordCheck(password string) {
	dh, ok := s.passwords.(dummyHasher)
	if !ok {
		return
	}
	if h := dh.DummyHash(); h != "" {
		_, _ = s.passwords.VerifyPassword(password, h)
	}
}

// maybeRehash upgrades legacy or outdated hashes after a successful login. Failures are logged only.
func (s *Service) maybeRehash(ctx context.Context, u identity.User, password string) {
	rh, ok := s.passwords.(rehasher)
	if !ok || !rh.NeedsRehash(u.PasswordHash) {
		return
	}
	up, ok := s.users.(passwordUpdater)
	if !ok {
		return
	}
	h, err := rh.HashPassword(password)
	if err != nil {
		s.log.Debug("auth.login.rehash_skipped", "user_id", u.ID, "err", err)
		return
	}
	if err := up.UpdatePasswordHash(ctx, u.ID, h); err != nil {
		s.log.Warn("auth.login.rehash_failed", "user_id", u.ID, "err", err)
	}
}
