package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces refresh record keys.
const DefaultRedisPrefix = "myauth:refresh:"

// RedisStore implements RefreshStore on Redis. Keys expire with their records.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

type redisRecord struct {
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewRedisStore returns a RedisStore. now should be the codec clock.
func NewRedisStore(rdb redis.UniversalClient, prefix string, now func() time.Time) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &RedisStore{rdb: rdb, prefix: prefix, now: now}
}

func (s *RedisStore) key(tokenHash string) string { return s.prefix + tokenHash }

func (s *RedisStore) Insert(ctx context.Context, rec RefreshRecord) error {
	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl < time.Second {
		ttl = time.Second
	}

	b, err := json.Marshal(redisRecord{UserID: rec.UserID, ExpiresAt: rec.ExpiresAt.UTC(), CreatedAt: rec.CreatedAt.UTC()})
	if err != nil {
		return fmt.Errorf("session: encode record: %w", err)
	}

	ok, err := s.rdb.SetNX(ctx, s.key(rec.TokenHash), b, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrRefreshConflict
	}
	return nil
}

func (s *RedisStore) Lookup(ctx context.Context, tokenHash string) (RefreshRecord, error) {
	b, err := s.rdb.Get(ctx, s.key(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return RefreshRecord{}, ErrRefreshNotFound
		}
		return RefreshRecord{}, err
	}

	var rr redisRecord
	if err := json.Unmarshal(b, &rr); err != nil {
		return RefreshRecord{}, fmt.Errorf("session: decode record: %w", err)
	}
	return RefreshRecord{
		TokenHash: tokenHash,
		UserID:    rr.UserID,
		ExpiresAt: rr.ExpiresAt,
		CreatedAt: rr.CreatedAt,
	}, nil
}

func (s *RedisStore) Delete(ctx context.Context, tokenHash string) error {
	return s.rdb.Del(ctx, s.key(tokenHash)).Err()
}
