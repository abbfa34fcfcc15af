package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]slog.Level{
		"debug":     slog.LevelDebug,
		" Warning ": slog.LevelWarn,
		"ERROR":     slog.LevelError,
		"verbose":   slog.LevelInfo,
		"":          slog.LevelInfo,
	} {
		if got := parseLogLevel(in); got != want {
			t.Fatalf("parseLogLevel(%q)=%v want=%v", in, got, want)
		}
	}
}

func TestJSONLogger_FiltersAndCarriesSource(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := newJSONLogger(&buf, "warn")

	log.Info("auth.login.success", "user_id", "u1")
	log.Warn("auth.login.fail", "reason", "invalid_credentials")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines=%d want 1: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["msg"] != "auth.login.fail" || rec["reason"] != "invalid_credentials" {
		t.Fatalf("record=%v", rec)
	}
	if _, ok := rec[slog.SourceKey]; !ok {
		t.Fatalf("missing %q in %v", slog.SourceKey, rec)
	}
}
