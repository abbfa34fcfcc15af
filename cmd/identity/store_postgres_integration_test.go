package identity

import (
	"context"
	"strings"
	"testing"
	"time"

	"myauth/cmd/internal/pgtest"
)

// Integration tests are opt-in and require MYAUTH_DATABASE_URL.

func TestPostgresStore_CreateUser_ConflictEmail_CaseInsensitive(t *testing.T) {
	pool := pgtest.Open(t)

	s, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	local := strings.ToLower(pgtest.UniqueSuffix(t))
	if _, err := s.CreateUser(ctx, CreateUserInput{Email: "User-" + local + "@Example.com", PasswordHash: "h1"}); err != nil {
		t.Fatalf("create user 1: %v", err)
	}

	_, err = s.CreateUser(ctx, CreateUserInput{Email: "user-" + local + "@example.COM", PasswordHash: "h2"})
	if !IsConflict(err) {
		t.Fatalf("expected conflict error, got: %v", err)
	}
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	pool := pgtest.Open(t)

	s, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	email := "rt-" + strings.ToLower(pgtest.UniqueSuffix(t)) + "@example.com"
	u, err := s.CreateUser(ctx, CreateUserInput{Email: email, PasswordHash: "hash", Name: "Round Trip"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetUserByEmail(ctx, strings.ToUpper(email))
	if err != nil {
		t.Fatalf("by email: %v", err)
	}
	if got.ID != u.ID || got.Name != "Round Trip" || got.Role != RoleUser || !got.CanAuthenticate() {
		t.Fatalf("unexpected user: %+v", got)
	}

	if err := s.SetStatus(ctx, u.ID, StatusSuspended, true); err != nil {
		t.Fatalf("set status: %v", err)
	}
	got, err = s.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if got.Status != StatusSuspended || got.CanAuthenticate() {
		t.Fatalf("expected suspended user, got %+v", got)
	}

	if _, err := s.GetUserByID(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestWithSchema_RejectsBadIdentifier(t *testing.T) {
	st := &PostgresStore{}
	if err := WithSchema(`bad"schema`)(st); err == nil {
		t.Fatalf("expected invalid identifier error")
	}
	if err := WithSchema("  ")(st); err == nil {
		t.Fatalf("expected empty schema error")
	}
	if err := WithSchema("tenant_1")(st); err != nil || st.schema != "tenant_1" {
		t.Fatalf("expected valid schema, err=%v schema=%q", err, st.schema)
	}
}
