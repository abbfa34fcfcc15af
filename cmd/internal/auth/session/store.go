package session

import (
	"context"
	"time"
)

// RefreshRecord is the server-side row that makes a refresh token redeemable.
// TokenHash is the storage hash of the token string; the token itself is never stored.
type RefreshRecord struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// RefreshStore persists RefreshRecords.
//
// Insert must fail atomically with ErrRefreshConflict for a duplicate TokenHash.
// Lookup returns ErrRefreshNotFound when no record exists; it does not filter expired records.
// Delete is idempotent.
type RefreshStore interface {
	Insert(ctx context.Context, rec RefreshRecord) error
	Lookup(ctx context.Context, tokenHash string) (RefreshRecord, error)
	Delete(ctx context.Context, tokenHash string) error
}
