package token

import (
	"errors"
	"strings"
	"testing"
)

func TestHasher_SHA256Fallback(t *testing.T) {
	h := NewHasher(nil)
	if h.Keyed() {
		t.Fatalf("expected unkeyed hasher")
	}
	// echo -n abc | sha256sum
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := h.Hash("abc"); got != want {
		t.Fatalf("Hash(abc) = %s, want %s", got, want)
	}
}

func TestHasher_HMACDiffersAndIsStable(t *testing.T) {
	plain := NewHasher(nil)
	keyed := NewHasher([]byte(strings.Repeat("k", 32)))

	a := keyed.Hash("refresh-token")
	if a == plain.Hash("refresh-token") {
		t.Fatalf("HMAC digest should differ from SHA-256 digest")
	}
	if a != keyed.Hash("refresh-token") {
		t.Fatalf("digest must be stable")
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if keyed.Hash("other") == a {
		t.Fatalf("distinct tokens must not share a digest")
	}
}

func TestHasherFromEnv(t *testing.T) {
	t.Setenv(HMACEnvKey, "")
	if _, err := HasherFromEnv(true); !errors.Is(err, ErrHMACKeyMissing) {
		t.Fatalf("expected ErrHMACKeyMissing, got %v", err)
	}
	h, err := HasherFromEnv(false)
	if err != nil || h.Keyed() {
		t.Fatalf("expected unkeyed hasher, err=%v", err)
	}

	t.Setenv(HMACEnvKey, "short")
	if _, err := HasherFromEnv(true); !errors.Is(err, ErrHMACKeyTooShort) {
		t.Fatalf("expected ErrHMACKeyTooShort, got %v", err)
	}

	t.Setenv(HMACEnvKey, "  "+strings.Repeat("x", 40)+"  ")
	h, err = HasherFromEnv(true)
	if err != nil || !h.Keyed() {
		t.Fatalf("expected keyed hasher, err=%v", err)
	}
}
