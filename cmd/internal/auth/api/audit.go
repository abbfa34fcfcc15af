package authapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/jackc/pgx/v5/pgxpool"

	"myauth/cmd/identity"
)

// Audit event names.
const (
	EventLoginSuccess   = "auth.login.success"
	EventLoginFail      = "auth.login.fail"
	EventLoginThrottled = "auth.login.throttled"
	EventRefreshSuccess = "auth.refresh.success"
	EventRefreshFail    = "auth.refresh.fail"
	EventLogout         = "auth.logout"
	EventSignup         = "auth.signup"
)

// AuditEvent is one security-relevant auth action.
type AuditEvent struct {
	Event      string
	UserID     string
	Email      string
	Channel    string
	RemoteAddr net.IP
	UserAgent  string
	Detail     string
}

// Auditor records auth events. Implementations must be safe for concurrent use.
type Auditor interface {
	Record(ctx context.Context, ev AuditEvent) error
}

// LogAuditor writes audit events to a structured logger.
type LogAuditor struct {
	log *slog.Logger
}

// NewLogAuditor returns a LogAuditor. A nil logger uses slog.Default.
func NewLogAuditor(log *slog.Logger) *LogAuditor {
	if log == nil {
		log = slog.Default()
	}
	return &LogAuditor{log: log}
}

func (a *LogAuditor) Record(ctx context.Context, ev AuditEvent) error {
	attrs := []any{"event", ev.Event, "channel", ev.Channel}
	if ev.UserID != "" {
		attrs = append(attrs, "user_id", ev.UserID)
	}
	if ev.Email != "" {
		attrs = append(attrs, "email", ev.Email)
	}
	if ev.RemoteAddr != nil {
		attrs = append(attrs, "remote_addr", ev.RemoteAddr.String())
	}
	if ev.Detail != "" {
		attrs = append(attrs, "detail", ev.Detail)
	}
	a.log.InfoContext(ctx, "auth.audit", attrs...)
	return nil
}

// PostgresAuditor inserts audit events into <schema>.audit_log.
type PostgresAuditor struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresAuditor returns an auditor writing to schema.audit_log.
func NewPostgresAuditor(pool *pgxpool.Pool, schema string) (*PostgresAuditor, error) {
	if pool == nil {
		return nil, errors.New("authapi: nil pool")
	}
	if schema == "" {
		schema = identity.DefaultSchema
	}
	if !identity.PgIdentIsValid(schema) {
		return nil, fmt.Errorf("authapi: invalid schema %q", schema)
	}
	return &PostgresAuditor{pool: pool, table: identity.PgIdent(schema, "audit_log")}, nil
}

func (a *PostgresAuditor) Record(ctx context.Context, ev AuditEvent) error {
	addr := ""
	if ev.RemoteAddr != nil {
		addr = ev.RemoteAddr.String()
	}
	_, err := a.pool.Exec(ctx, `
		INSERT INTO `+a.table+` (event, user_id, email, channel, remote_addr, user_agent, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ev.Event, nullIfEmpty(ev.UserID), nullIfEmpty(ev.Email), ev.Channel, addr, ev.UserAgent, ev.Detail)
	if err != nil {
		return fmt.Errorf("authapi: insert audit event: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
