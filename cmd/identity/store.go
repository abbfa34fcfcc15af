package identity

import (
	"context"
	"strings"
	"time"
)

// Status is the account lifecycle state.
type Status string

const (
	StatusActive              Status = "ACTIVE"
	StatusSuspended           Status = "SUSPENDED"
	StatusDeleted             Status = "DELETED"
	StatusInactive            Status = "INACTIVE"
	StatusPendingVerification Status = "PENDING_VERIFICATION"
)

// ParseStatus maps a stored value to a Status. Unknown values are returned as-is.
func ParseStatus(s string) Status {
	return Status(strings.ToUpper(strings.TrimSpace(s)))
}

// Role is an opaque authorization tag.
type Role string

// RoleUser is assigned to every self-registered account.
const RoleUser Role = "ROLE_USER"

// User is the authenticated principal's stored record.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         Role
	Status       Status
	Active       bool
	CreatedAt    time.Time
}

// CanAuthenticate reports whether the account may hold a session.
func (u User) CanAuthenticate() bool {
	return u.Active && u.Status == StatusActive
}

// CreateUserInput describes a registration. PasswordHash is an encoded hash, never plaintext.
type CreateUserInput struct {
	Email        string
	PasswordHash string
	Name         string
	Role         Role
	Now          time.Time
}

// Store is the identity persistence boundary.
//
// CreateUser must enforce email uniqueness atomically and report duplicates as ConflictError{Field: "email"}.
// Lookups report missing users as NotFoundError.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	SetStatus(ctx context.Context, id string, status Status, active bool) error
	UpdatePasswordHash(ctx context.Context, id string, hash string) error
}

func prepareCreate(op string, in CreateUserInput) (User, error) {
	email := NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return User{}, invalid(op, "valid email is required")
	}
	if strings.TrimSpace(in.PasswordHash) == "" {
		return User{}, invalid(op, "password hash is required")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	role := in.Role
	if role == "" {
		role = RoleUser
	}

	id, err := NewID(now)
	if err != nil {
		return User{}, err
	}

	return User{
		ID:           id,
		Email:        email,
		PasswordHash: in.PasswordHash,
		Name:         strings.TrimSpace(in.Name),
		Role:         role,
		Status:       StatusActive,
		Active:       true,
		CreatedAt:    now,
	}, nil
}
