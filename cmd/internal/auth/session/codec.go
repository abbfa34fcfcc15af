package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"myauth/cmd/identity"
)

// TokenType is the "type" claim distinguishing access from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// VerifyKind classifies a verification outcome.
type VerifyKind int

const (
	VerifyOK VerifyKind = iota
	// VerifyExpired means the signature is valid and exp has passed.
	VerifyExpired
	// VerifyInvalid means a signature mismatch or an unsupported structure.
	VerifyInvalid
	// VerifyMalformed means the token cannot be parsed at all.
	VerifyMalformed
)

func (k VerifyKind) String() string {
	switch k {
	case VerifyOK:
		return "ok"
	case VerifyExpired:
		return "expired"
	case VerifyInvalid:
		return "invalid"
	case VerifyMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("VerifyKind(%d)", int(k))
	}
}

// Claims is the decoded payload of a verified token.
type Claims struct {
	Subject   string
	UserID    string
	Type      TokenType
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// VerifyResult is the typed outcome of Codec.Verify.
// Claims is set only when Kind is VerifyOK. Err carries detail for logs.
type VerifyResult struct {
	Kind   VerifyKind
	Claims Claims
	Err    error
}

// OK reports whether verification succeeded.
func (r VerifyResult) OK() bool { return r.Kind == VerifyOK }

// Subject identifies whom a token is issued to.
type Subject struct {
	UserID string
	Email  string
}

type jwtClaims struct {
	UserID string    `json:"userId,omitempty"`
	Type   TokenType `json:"type"`
	jwt.RegisteredClaims
}

// Codec issues and verifies HS256 tokens. It is safe for concurrent use.
type Codec struct {
	cfg    Config
	now    func() time.Time
	parser *jwt.Parser
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithClock replaces the time source used for issuance, verification and record expiry.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec validates cfg and returns a Codec.
func NewCodec(cfg Config, opts ...CodecOption) (*Codec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	cfg.Secret = secret

	c := &Codec{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	popts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	}
	if cfg.Issuer != "" {
		popts = append(popts, jwt.WithIssuer(cfg.Issuer))
	}
	c.parser = jwt.NewParser(popts...)

	return c, nil
}

// Now returns the codec's current time.
func (c *Codec) Now() time.Time { return c.now() }

// AccessTTL returns the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.cfg.AccessTokenTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.cfg.RefreshTokenTTL }

// IssueAccess returns an access token carrying sub=email and userId.
func (c *Codec) IssueAccess(s Subject) (string, time.Time, error) {
	return c.issue(s.Email, s.UserID, TokenAccess, c.cfg.AccessTokenTTL)
}

// IssueRefresh returns a refresh token carrying sub=email.
func (c *Codec) IssueRefresh(s Subject) (string, time.Time, error) {
	return c.issue(s.Email, "", TokenRefresh, c.cfg.RefreshTokenTTL)
}

func (c *Codec) issue(subject, userID string, typ TokenType, ttl time.Duration) (string, time.Time, error) {
	now := c.now()

	jti, err := identity.NewID(now)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session: token id: %w", err)
	}

	claims := jwtClaims{
		UserID: userID,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.cfg.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session: sign: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify checks signature, algorithm, issuer and expiry and classifies the outcome.
func (c *Codec) Verify(token string) VerifyResult {
	var jc jwtClaims
	_, err := c.parser.ParseWithClaims(token, &jc, c.keyFunc)
	if err != nil {
		return VerifyResult{Kind: c.classify(token, err), Err: err}
	}

	if jc.Type != TokenAccess && jc.Type != TokenRefresh {
		return VerifyResult{Kind: VerifyInvalid, Err: fmt.Errorf("session: unknown token type %q", jc.Type)}
	}

	out := Claims{
		Subject: jc.Subject,
		UserID:  jc.UserID,
		Type:    jc.Type,
		ID:      jc.ID,
	}
	if jc.IssuedAt != nil {
		out.IssuedAt = jc.IssuedAt.Time
	}
	if jc.ExpiresAt != nil {
		out.ExpiresAt = jc.ExpiresAt.Time
	}
	return VerifyResult{Kind: VerifyOK, Claims: out}
}

func (c *Codec) keyFunc(*jwt.Token) (any, error) {
	return c.cfg.Secret, nil
}

// classify maps a parse error to a kind.
// The parser checks the signature before claims, so ErrTokenExpired implies a valid signature.
func (c *Codec) classify(token string, err error) VerifyKind {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return VerifyExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		// A readable header and payload with an undecodable signature is a bad signature.
		if _, _, uerr := c.parser.ParseUnverified(token, &jwtClaims{}); uerr == nil {
			return VerifyInvalid
		}
		return VerifyMalformed
	default:
		return VerifyInvalid
	}
}
