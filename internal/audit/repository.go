package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WindowParams selects a slice of the timeline. Limit <= 0 means no limit.
type WindowParams struct {
	From     pgtype.Timestamptz
	To       pgtype.Timestamptz
	ActorID  pgtype.Int8
	Entity   pgtype.Text
	EntityID pgtype.Text
	Action   pgtype.Text
	Offset   int
	Limit    int
}

// Repository reads audit_logs.
type Repository interface {
	Window(ctx context.Context, arg WindowParams) ([]TimelineRow, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const timelineQuery = `
	SELECT a.id, a.occurred_at, a.actor_id, COALESCE(c.username, ''), a.action, a.entity, a.entity_id, a.meta
	FROM audit_logs a
	LEFT JOIN customers c ON c.id = a.actor_id
	WHERE ($1::timestamptz IS NULL OR a.occurred_at >= $1)
	  AND ($2::timestamptz IS NULL OR a.occurred_at < $2)
	  AND ($3::bigint IS NULL OR a.actor_id = $3)
	  AND ($4::text IS NULL OR a.entity = $4)
	  AND ($5::text IS NULL OR a.entity_id = $5)
	  AND ($6::text IS NULL OR a.action = $6)
	ORDER BY a.occurred_at DESC, a.id DESC
	OFFSET $7`

func (r *repository) Window(ctx context.Context, arg WindowParams) ([]TimelineRow, error) {
	query := timelineQuery
	args := []any{arg.From, arg.To, arg.ActorID, arg.Entity, arg.EntityID, arg.Action, arg.Offset}
	if arg.Limit > 0 {
		query += ` LIMIT $8`
		args = append(args, arg.Limit)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []TimelineRow{}
	for rows.Next() {
		var (
			row  TimelineRow
			meta []byte
		)
		if err := rows.Scan(&row.ID, &row.At, &row.ActorID, &row.Actor, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &row.Meta); err != nil {
				return nil, err
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
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
