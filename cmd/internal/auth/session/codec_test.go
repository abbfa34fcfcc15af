package session

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestCodec_IssueAndVerifyAccess(t *testing.T) {
	clk := newFakeClock()
	c := newTestCodec(t, clk)

	tok, exp, err := c.IssueAccess(Subject{UserID: "01HZZZZZZZZZZZZZZZZZZZZZZZ", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if !exp.Equal(clk.Now().Add(15 * time.Minute)) {
		t.Fatalf("unexpected exp %v", exp)
	}

	res := c.Verify(tok)
	if !res.OK() {
		t.Fatalf("expected OK, got %v (%v)", res.Kind, res.Err)
	}
	got := res.Claims
	if got.Subject != "a@x.com" || got.UserID != "01HZZZZZZZZZZZZZZZZZZZZZZZ" || got.Type != TokenAccess {
		t.Fatalf("unexpected claims: %+v", got)
	}
	if got.ID == "" || !got.IssuedAt.Equal(clk.Now()) {
		t.Fatalf("missing jti or iat: %+v", got)
	}
}

func TestCodec_RefreshHasNoUserID(t *testing.T) {
	clk := newFakeClock()
	c := newTestCodec(t, clk)

	tok, exp, err := c.IssueRefresh(Subject{UserID: "u1", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if !exp.Equal(clk.Now().Add(7 * 24 * time.Hour)) {
		t.Fatalf("unexpected exp %v", exp)
	}
	res := c.Verify(tok)
	if !res.OK() || res.Claims.Type != TokenRefresh || res.Claims.UserID != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestCodec_TokensIssuedTogetherDiffer(t *testing.T) {
	c := newTestCodec(t, newFakeClock())
	sub := Subject{UserID: "u1", Email: "a@x.com"}

	a, _, _ := c.IssueRefresh(sub)
	b, _, _ := c.IssueRefresh(sub)
	if a == b {
		t.Fatalf("tokens issued at the same instant must differ")
	}
}

func TestCodec_ExpiredIsExpired(t *testing.T) {
	clk := newFakeClock()
	c := newTestCodec(t, clk)

	tok, _, err := c.IssueAccess(Subject{UserID: "u1", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	clk.Advance(15 * time.Minute)
	if res := c.Verify(tok); res.Kind != VerifyExpired {
		t.Fatalf("expected expired at exp, got %v", res.Kind)
	}
	clk.Advance(24 * time.Hour)
	if res := c.Verify(tok); res.Kind != VerifyExpired {
		t.Fatalf("expected expired, got %v", res.Kind)
	}
}

func TestCodec_FlippedSignatureIsInvalid(t *testing.T) {
	clk := newFakeClock()
	c := newTestCodec(t, clk)

	tok, _, err := c.IssueAccess(Subject{UserID: "u1", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 segments")
	}

	check := func(t *testing.T) {
		sig := parts[2]
		for i := 0; i < len(sig); i++ {
			repl := byte('A')
			if sig[i] == 'A' {
				repl = 'B'
			}
			mutated := parts[0] + "." + parts[1] + "." + sig[:i] + string(repl) + sig[i+1:]
			if res := c.Verify(mutated); res.Kind != VerifyInvalid {
				t.Fatalf("flip at %d: expected invalid, got %v (%v)", i, res.Kind, res.Err)
			}
		}
	}

	t.Run("fresh", check)

	// An expired token with a broken signature is still invalid, never expired.
	clk.Advance(time.Hour)
	t.Run("expired", check)
}

func TestCodec_OtherSecretIsInvalid(t *testing.T) {
	clk := newFakeClock()
	c := newTestCodec(t, clk)

	other := testConfig()
	other.Secret = []byte(strings.Repeat("o", 48))
	c2, err := NewCodec(other, WithClock(clk.Now))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	tok, _, _ := c2.IssueAccess(Subject{UserID: "u1", Email: "a@x.com"})
	if res := c.Verify(tok); res.Kind != VerifyInvalid {
		t.Fatalf("expected invalid, got %v", res.Kind)
	}

	clk.Advance(time.Hour)
	if res := c.Verify(tok); res.Kind != VerifyInvalid {
		t.Fatalf("expected invalid for expired foreign token, got %v", res.Kind)
	}
}

func TestCodec_Malformed(t *testing.T) {
	c := newTestCodec(t, newFakeClock())

	for _, tok := range []string{"", "abc", "a.b", "x.y.z", "!!!.@@@.###", "eyJhbGciOiJIUzI1NiJ9.bm90LWpzb24.c2ln"} {
		if res := c.Verify(tok); res.Kind != VerifyMalformed {
			t.Fatalf("Verify(%q): expected malformed, got %v (%v)", tok, res.Kind, res.Err)
		}
	}
}

func TestCodec_UnsupportedStructureIsInvalid(t *testing.T) {
	clk := newFakeClock()
	c := newTestCodec(t, clk)
	now := clk.Now()

	base := jwtClaims{
		UserID: "u1",
		Type:   TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "myauth",
			Subject:   "a@x.com",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}
	secret := testConfig().Secret

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, base).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, base).SignedString(secret)
	if err != nil {
		t.Fatalf("sign hs512: %v", err)
	}

	wrongIss := base
	wrongIss.Issuer = "someone-else"
	iss, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, wrongIss).SignedString(secret)

	noExp := base
	noExp.ExpiresAt = nil
	missingExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, noExp).SignedString(secret)

	badType := base
	badType.Type = "id"
	typ, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, badType).SignedString(secret)

	cases := map[string]string{
		"alg none":     none,
		"alg hs512":    hs512,
		"wrong issuer": iss,
		"missing exp":  missingExp,
		"unknown type": typ,
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			if res := c.Verify(tok); res.Kind != VerifyInvalid {
				t.Fatalf("expected invalid, got %v (%v)", res.Kind, res.Err)
			}
		})
	}
}

func TestNewCodec_RejectsWeakConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Secret = []byte("short")
	if _, err := NewCodec(cfg); err != ErrConfig {
		t.Fatalf("expected ErrConfig, got %v", err)
	}

	cfg = testConfig()
	cfg.AccessTokenTTL = 0
	if _, err := NewCodec(cfg); err != ErrConfig {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestVerifyKind_String(t *testing.T) {
	for k, want := range map[VerifyKind]string{
		VerifyOK:        "ok",
		VerifyExpired:   "expired",
		VerifyInvalid:   "invalid",
		VerifyMalformed: "malformed",
	} {
		if k.String() != want {
			t.Fatalf("%d: got %q want %q", int(k), k.String(), want)
		}
	}
}
