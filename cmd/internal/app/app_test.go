package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRuntimeBaseURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "explicit localhost", in: "127.0.0.1:8080", want: "http://127.0.0.1:8080"},
		{name: "bind all v4", in: "0.0.0.0:8080", want: "http://127.0.0.1:8080"},
		{name: "bind all v6", in: "[::]:9090", want: "http://127.0.0.1:9090"},
		{name: "port only", in: ":7070", want: "http://127.0.0.1:7070"},
		{name: "ipv6 host", in: "[2001:db8::1]:9090", want: "http://[2001:db8::1]:9090"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := runtimeBaseURL(tc.in)
			if got != tc.want {
				t.Fatalf("runtimeBaseURL(%q)=%q want=%q", tc.in, got, tc.want)
			}
		})
	}
}

func TestResolveBackends(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		cfg         Config
		wantUsers   string
		wantRefresh string
		wantErr     bool
	}{
		{name: "defaults without db", cfg: Config{}, wantUsers: "memory", wantRefresh: "memory"},
		{name: "defaults with db", cfg: Config{DatabaseURL: "postgres://x"}, wantUsers: "postgres", wantRefresh: "postgres"},
		{name: "redis refresh", cfg: Config{RefreshStore: "Redis"}, wantUsers: "memory", wantRefresh: "redis"},
		{name: "explicit memory with db", cfg: Config{DatabaseURL: "postgres://x", Store: "memory"}, wantUsers: "memory", wantRefresh: "memory"},
		{name: "postgres without dsn", cfg: Config{Store: "postgres"}, wantErr: true},
		{name: "postgres refresh without dsn", cfg: Config{RefreshStore: "postgres"}, wantErr: true},
		{name: "unknown store", cfg: Config{Store: "mongo"}, wantErr: true},
		{name: "unknown refresh", cfg: Config{RefreshStore: "etcd"}, wantErr: true},
		{name: "redis is not an identity store", cfg: Config{Store: "redis"}, wantErr: true},
		{name: "postgres refresh needs postgres identities", cfg: Config{DatabaseURL: "postgres://x", Store: "memory", RefreshStore: "postgres"}, wantErr: true},
		{name: "postgres identities with redis refresh", cfg: Config{DatabaseURL: "postgres://x", RefreshStore: "redis"}, wantUsers: "postgres", wantRefresh: "redis"},
		{name: "postgres identities with memory refresh", cfg: Config{DatabaseURL: "postgres://x", RefreshStore: "memory"}, wantUsers: "postgres", wantRefresh: "memory"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			users, refresh, err := resolveBackends(tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got users=%q refresh=%q", users, refresh)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if users != tc.wantUsers || refresh != tc.wantRefresh {
				t.Fatalf("got users=%q refresh=%q want %q/%q", users, refresh, tc.wantUsers, tc.wantRefresh)
			}
		})
	}
}

func newTestApp(t *testing.T, cfg Config) *App {
	t.Helper()

	t.Setenv("MYAUTH_ENV", "development")
	t.Setenv("MYAUTH_JWT_SECRET", strings.Repeat("j", 40))
	t.Setenv("MYAUTH_MEDIA_BACKEND", "local")
	t.Setenv("MYAUTH_MEDIA_DIR", t.TempDir())
	t.Setenv("MYAUTH_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("MYAUTH_ARGON2_ITERATIONS", "1")
	t.Setenv("MYAUTH_ARGON2_PARALLELISM", "1")
	t.Setenv("MYAUTH_COOKIE_SECURE", "")

	if cfg.Store == "" {
		cfg.Store = BackendMemory
	}
	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func serve(a *App, r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, r)
	return rr
}

func TestApp_OperationalEndpoints(t *testing.T) {
	a := newTestApp(t, Config{})

	for _, path := range []string{"/health", "/healthz", "/readyz"} {
		rr := serve(a, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("%s missing security headers", path)
		}
	}

	rr := serve(a, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "myauth_http_requests_total") {
		t.Fatalf("/metrics status=%d body lacks request counter", rr.Code)
	}

	rr = serve(a, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["errorCode"] != "NOT_FOUND" || body["path"] != "/does-not-exist" {
		t.Fatalf("unexpected 404 body: %v", body)
	}
}

func TestApp_ReadinessRequiresDB(t *testing.T) {
	a := newTestApp(t, Config{ReadinessRequireDB: true})

	rr := serve(a, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestApp_SignupLoginMe(t *testing.T) {
	a := newTestApp(t, Config{})

	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"email":"app@example.com","password":"correct-horse-battery","name":"App"}`))
	if rr := serve(a, req); rr.Code != http.StatusCreated {
		t.Fatalf("signup status=%d body=%s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"app@example.com","password":"correct-horse-battery"}`))
	rr := serve(a, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("login status=%d body=%s", rr.Code, rr.Body.String())
	}
	var login struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &login); err != nil || login.AccessToken == "" {
		t.Fatalf("decode login: %v body=%s", err, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	if rr := serve(a, req); rr.Code != http.StatusOK {
		t.Fatalf("/me status=%d body=%s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	if rr := serve(a, req); rr.Code != http.StatusUnauthorized {
		t.Fatalf("/me with bad token status=%d", rr.Code)
	}
}

func TestNew_RejectsBadGatePolicy(t *testing.T) {
	t.Setenv("MYAUTH_ENV", "development")
	t.Setenv("MYAUTH_COOKIE_SECURE", "")

	_, err := New(context.Background(), Config{GatePolicy: "sometimes"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err == nil {
		t.Fatalf("expected error for unknown gate policy")
	}
}
