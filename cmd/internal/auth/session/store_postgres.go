package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"myauth/cmd/identity"
)

// PostgresStore implements RefreshStore using PostgreSQL (myauth.refresh_tokens).
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresStore creates a Postgres-backed refresh store in schema.
func NewPostgresStore(pool *pgxpool.Pool, schema string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("session: nil pool")
	}
	if schema == "" {
		schema = identity.DefaultSchema
	}
	if !identity.PgIdentIsValid(schema) {
		return nil, fmt.Errorf("session: invalid schema identifier")
	}
	return &PostgresStore{pool: pool, table: identity.PgIdent(schema, "refresh_tokens")}, nil
}

func (s *PostgresStore) Insert(ctx context.Context, rec RefreshRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+s.table+` (token_hash, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`, rec.TokenHash, rec.UserID, rec.ExpiresAt, rec.CreatedAt)
	if err != nil {
		if identity.IsUniqueViolation(err) {
			return ErrRefreshConflict
		}
		return err
	}
	return nil
}

func (s *PostgresStore) Lookup(ctx context.Context, tokenHash string) (RefreshRecord, error) {
	var rec RefreshRecord
	err := s.pool.QueryRow(ctx, `
		SELECT token_hash, user_id, expires_at, created_at
		FROM `+s.table+`
		WHERE token_hash = $1
	`, tokenHash).Scan(&rec.TokenHash, &rec.UserID, &rec.ExpiresAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RefreshRecord{}, ErrRefreshNotFound
		}
		return RefreshRecord{}, err
	}
	return rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, tokenHash string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM `+s.table+` WHERE token_hash = $1`, tokenHash)
	return err
}
