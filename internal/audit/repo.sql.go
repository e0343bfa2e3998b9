package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WindowParams selects one page of rows.
type WindowParams struct {
	From   time.Time
	To     time.Time
	Actor  string
	Entity string
	Action string
	Offset int
	Limit  int
}

// PGRepository reads audit_logs.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the Postgres timeline reader.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const timelineSelect = `SELECT a.occurred_at, COALESCE(a.actor_id, 0), COALESCE(u.username, 'system'),
a.action, a.entity, a.entity_id, a.meta
FROM audit_logs a
LEFT JOIN users u ON u.id = a.actor_id`

// TimelineWindow returns up to Limit rows newest first. A zero Limit returns every row.
func (r *PGRepository) TimelineWindow(ctx context.Context, arg WindowParams) ([]TimelineRow, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if !arg.From.IsZero() {
		add("a.occurred_at >= $%d", arg.From)
	}
	if !arg.To.IsZero() {
		add("a.occurred_at < $%d", arg.To.AddDate(0, 0, 1))
	}
	if arg.Actor != "" {
		add("u.username ILIKE $%d", "%"+arg.Actor+"%")
	}
	if arg.Entity != "" {
		add("a.entity = $%d", arg.Entity)
	}
	if arg.Action != "" {
		add("a.action = $%d", arg.Action)
	}

	query := timelineSelect
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\nORDER BY a.occurred_at DESC, a.id DESC"
	if arg.Limit > 0 {
		args = append(args, arg.Limit, arg.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimelineRow
	for rows.Next() {
		var row TimelineRow
		var meta []byte
		if err := rows.Scan(&row.At, &row.ActorID, &row.Actor, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &row.Meta); err != nil {
				return nil, fmt.Errorf("audit: decode meta: %w", err)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
