package shared

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog is one row of audit_logs.
type AuditLog struct {
	Actor    Identity
	Action   string
	Entity   string
	EntityID int64
	Meta     map[string]any
	At       time.Time
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AuditLogger appends rows to audit_logs.
type AuditLogger struct {
	db  execer
	now func() time.Time
}

// NewAuditLogger returns a logger writing through pool.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	l := &AuditLogger{now: time.Now}
	if pool != nil {
		l.db = pool
	}
	return l
}

const insertAuditSQL = `INSERT INTO audit_logs (actor_id, actor_role, company_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// Record appends log. Action and entity are required; a nil Meta is stored
// as an empty object.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	const op = "shared.AuditLogger.Record"
	if l == nil || l.db == nil {
		return fmt.Errorf("%s: logger not initialised", op)
	}
	if log.Action == "" || log.Entity == "" {
		return E(KindValidation, op, "audit_log").Withf("action and entity are required")
	}
	if log.Meta == nil {
		log.Meta = map[string]any{}
	}
	meta, err := json.Marshal(log.Meta)
	if err != nil {
		return E(KindValidation, op, "audit_log").Wrap(err)
	}
	at := log.At
	if at.IsZero() {
		at = l.now()
	}
	if _, err := l.db.Exec(ctx, insertAuditSQL,
		log.Actor.UserID, string(log.Actor.Role), log.Actor.CompanyID,
		log.Action, log.Entity, log.EntityID, meta, at.UTC()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
