package audit

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billease/billease/internal/platform/db"
)

// WindowParams are the optional filters for a trail query. Invalid values mean "unfiltered".
type WindowParams struct {
	CompanyID int64
	FromAt    pgtype.Timestamptz
	ToAt      pgtype.Timestamptz
	ActorID   pgtype.Int8
	Action    pgtype.Text
	Entity    pgtype.Text
	EntityID  pgtype.Int8
	Offset    int32
	Limit     int32
}

// Repository reads audit_logs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the audit repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const windowSQL = `SELECT id, occurred_at, actor_id, actor_role, action, entity, entity_id, meta
FROM audit_logs
WHERE company_id = $1
  AND ($2::timestamptz IS NULL OR occurred_at >= $2)
  AND ($3::timestamptz IS NULL OR occurred_at < $3)
  AND ($4::bigint IS NULL OR actor_id = $4)
  AND ($5::text IS NULL OR action = $5)
  AND ($6::text IS NULL OR entity = $6)
  AND ($7::bigint IS NULL OR entity_id = $7)
ORDER BY occurred_at DESC, id DESC
OFFSET $8 LIMIT $9`

// Window returns one slice of the trail, newest first.
func (r *Repository) Window(ctx context.Context, p WindowParams) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, windowSQL,
		p.CompanyID, p.FromAt, p.ToAt, p.ActorID, p.Action, p.Entity, p.EntityID, p.Offset, p.Limit)
	if err != nil {
		return nil, db.Classify("audit.Window", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e    Entry
			at   pgtype.Timestamptz
			role pgtype.Text
			meta []byte
		)
		if err := rows.Scan(&e.ID, &at, &e.ActorID, &role, &e.Action, &e.Entity, &e.EntityID, &meta); err != nil {
			return nil, db.Classify("audit.Window", err)
		}
		e.At = at.Time.UTC()
		e.ActorRole = role.String
		if len(meta) > 0 && string(meta) != "null" {
			e.Meta = meta
		}
		out = append(out, e)
	}
	return out, db.Classify("audit.Window", rows.Err())
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}

func optionalID(id int64) pgtype.Int8 {
	if id <= 0 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: id, Valid: true}
}
