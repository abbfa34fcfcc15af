package password

import (
	"os"
	"testing"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{
		"MYAUTH_PASSWORD_MIN_LEN",
		"MYAUTH_PASSWORD_MAX_LEN",
		"MYAUTH_PASSWORD_REJECT_VERY_WEAK",
		"MYAUTH_ARGON2_MEMORY_KIB",
		"MYAUTH_ARGON2_ITERATIONS",
		"MYAUTH_ARGON2_PARALLELISM",
		"MYAUTH_ARGON2_SALT_LEN",
		"MYAUTH_ARGON2_KEY_LEN",
	} {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	def := DefaultConfig()
	if cfg.Policy != def.Policy {
		t.Fatalf("expected default policy %+v, got %+v", def.Policy, cfg.Policy)
	}
	if cfg.Policy.MinLength != 8 {
		t.Fatalf("expected min length 8, got %d", cfg.Policy.MinLength)
	}
}

func TestFromEnv_EmptyValueIsInvalid(t *testing.T) {
	t.Setenv("MYAUTH_ARGON2_ITERATIONS", "")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for empty numeric value")
	}
}

func TestFromEnv_Override(t *testing.T) {
	t.Setenv("MYAUTH_PASSWORD_MIN_LEN", "10")
	t.Setenv("MYAUTH_PASSWORD_MAX_LEN", "200")
	t.Setenv("MYAUTH_PASSWORD_REJECT_VERY_WEAK", "false")
	t.Setenv("MYAUTH_ARGON2_MEMORY_KIB", "32768")
	t.Setenv("MYAUTH_ARGON2_ITERATIONS", "4")
	t.Setenv("MYAUTH_ARGON2_PARALLELISM", "2")
	t.Setenv("MYAUTH_ARGON2_SALT_LEN", "24")
	t.Setenv("MYAUTH_ARGON2_KEY_LEN", "32")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if cfg.Policy.MinLength != 10 || cfg.Policy.MaxLength != 200 || cfg.Policy.RejectVeryWeak {
		t.Fatalf("policy override failed: %+v", cfg.Policy)
	}
	if cfg.Params.MemoryKiB != 32768 || cfg.Params.Iterations != 4 || cfg.Params.Parallelism != 2 {
		t.Fatalf("argon2 override failed: %+v", cfg.Params)
	}
	if cfg.Params.SaltLength != 24 || cfg.Params.KeyLength != 32 {
		t.Fatalf("len override failed: %+v", cfg.Params)
	}
}

func TestFromEnv_InvalidMinMax(t *testing.T) {
	t.Setenv("MYAUTH_PASSWORD_MIN_LEN", "20")
	t.Setenv("MYAUTH_PASSWORD_MAX_LEN", "10")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error")
	}
}
