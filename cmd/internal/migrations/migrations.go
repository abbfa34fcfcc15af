// Package migrations embeds the SQL schema and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

var (
	gooseUpContext = goose.UpContext
	gooseSetup     sync.Once
	gooseSetupErr  error
)

// Up applies all pending migrations on db.
func Up(ctx context.Context, db *sql.DB) error {
	gooseSetup.Do(func() {
		goose.SetBaseFS(FS)
		gooseSetupErr = goose.SetDialect("pgx")
	})
	if gooseSetupErr != nil {
		return fmt.Errorf("migrations: %w", gooseSetupErr)
	}
	return gooseUpContext(ctx, db, ".")
}

// UpPool applies migrations through a database/sql handle over pool.
// The handle is not closed; pool keeps ownership of the connections.
func UpPool(ctx context.Context, pool *pgxpool.Pool) error {
	return Up(ctx, stdlib.OpenDBFromPool(pool))
}
