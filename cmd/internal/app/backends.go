package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"myauth/cmd/identity"
	authapi "myauth/cmd/internal/auth/api"
	"myauth/cmd/internal/auth/session"
)

// backends owns the storage resources selected by configuration.
type backends struct {
	users    identity.Store
	refresh  session.RefreshStore
	auditor  authapi.Auditor
	failures authapi.FailureLog // nil without Postgres; disables login throttling

	pool  *pgxpool.Pool
	redis *redis.Client

	userBackend    string
	refreshBackend string
}

// resolveBackends applies defaults and rejects unknown names.
// The identity store defaults to postgres when a DSN is set; the refresh store follows it.
func resolveBackends(cfg Config) (users, refresh string, err error) {
	users = strings.ToLower(strings.TrimSpace(cfg.Store))
	refresh = strings.ToLower(strings.TrimSpace(cfg.RefreshStore))

	if users == "" {
		users = BackendMemory
		if cfg.DatabaseURL != "" {
			users = BackendPostgres
		}
	}
	if refresh == "" {
		refresh = users
	}

	switch users {
	case BackendMemory, BackendPostgres:
	default:
		return "", "", fmt.Errorf("app: unknown MYAUTH_STORE %q", cfg.Store)
	}
	switch refresh {
	case BackendMemory, BackendPostgres, BackendRedis:
	default:
		return "", "", fmt.Errorf("app: unknown MYAUTH_REFRESH_STORE %q", cfg.RefreshStore)
	}

	if (users == BackendPostgres || refresh == BackendPostgres) && cfg.DatabaseURL == "" {
		return "", "", fmt.Errorf("app: postgres backend selected but MYAUTH_DATABASE_URL is empty")
	}
	// refresh_tokens.user_id references myauth.users, so Postgres refresh records need Postgres identities.
	if refresh == BackendPostgres && users != BackendPostgres {
		return "", "", fmt.Errorf("app: MYAUTH_REFRESH_STORE=postgres requires MYAUTH_STORE=postgres, got %q", users)
	}
	return users, refresh, nil
}

// openBackends connects the selected stores. now is the codec clock used for Redis key TTLs.
func openBackends(ctx context.Context, cfg Config, log Logger, now func() time.Time) (*backends, error) {
	userBackend, refreshBackend, err := resolveBackends(cfg)
	if err != nil {
		return nil, err
	}

	b := &backends{userBackend: userBackend, refreshBackend: refreshBackend}

	if userBackend == BackendPostgres || refreshBackend == BackendPostgres {
		pool, err := NewDBPool(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		b.pool = pool
	}

	switch userBackend {
	case BackendPostgres:
		st, err := identity.NewPostgresStore(b.pool)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.users = st
	default:
		b.users = identity.NewMemoryStore()
	}

	switch refreshBackend {
	case BackendPostgres:
		st, err := session.NewPostgresStore(b.pool, identity.DefaultSchema)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.refresh = st
	case BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			b.Close()
			return nil, fmt.Errorf("app: redis ping: %w", err)
		}
		b.redis = rdb
		b.refresh = session.NewRedisStore(rdb, cfg.RedisPrefix, now)
	default:
		b.refresh = session.NewMemoryStore()
	}

	if b.pool != nil {
		a, err := authapi.NewPostgresAuditor(b.pool, identity.DefaultSchema)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.auditor = a
		b.failures = a
	} else {
		b.auditor = authapi.NewLogAuditor(log)
	}

	log.Info("store.selected", "identity", userBackend, "refresh", refreshBackend)
	return b, nil
}

// Ready reports whether the backing services respond.
func (b *backends) Ready(ctx context.Context) error {
	if b.pool != nil {
		if err := PingDB(ctx, b.pool, 2*time.Second); err != nil {
			return fmt.Errorf("db: %w", err)
		}
	}
	if b.redis != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := b.redis.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close releases pools and clients. The app owns their lifecycle.
func (b *backends) Close() {
	if b == nil {
		return
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}
