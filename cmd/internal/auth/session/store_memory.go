package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process RefreshStore.
type MemoryStore struct {
	mu   sync.Mutex
	recs map[string]RefreshRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]RefreshRecord)}
}

func (s *MemoryStore) Insert(ctx context.Context, rec RefreshRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recs[rec.TokenHash]; ok {
		return ErrRefreshConflict
	}
	if !rec.CreatedAt.IsZero() {
		s.pruneLocked(rec.CreatedAt)
	}
	s.recs[rec.TokenHash] = rec
	return nil
}

func (s *MemoryStore) Lookup(ctx context.Context, tokenHash string) (RefreshRecord, error) {
	if err := ctx.Err(); err != nil {
		return RefreshRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recs[tokenHash]
	if !ok {
		return RefreshRecord{}, ErrRefreshNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Delete(ctx context.Context, tokenHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.recs, tokenHash)
	return nil
}

// pruneLocked drops records that expired before now. Inserts call it with the
// issuance time so the map does not grow with dead sessions.
func (s *MemoryStore) pruneLocked(now time.Time) {
	for k, rec := range s.recs {
		if !rec.ExpiresAt.After(now) {
			delete(s.recs, k)
		}
	}
}
