package export

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labportal/reagent-portal/internal/shared"
)

// Every column is cast to text so rows stream without per-type formatting.
var snapshotQueries = map[Kind]string{
	KindProducts: `
		SELECT id::text AS id, code, name, section, analyser, kit_size,
		       default_price_usd::text AS default_price_usd,
		       created_at::text AS created_at, updated_at::text AS updated_at
		FROM products
		ORDER BY code`,
	KindCustomers: `
		SELECT id::text AS id, username, name, type,
		       COALESCE(phone, '') AS phone,
		       COALESCE(email, '') AS email,
		       COALESCE(location, '') AS location,
		       COALESCE(contract_end_date::text, '') AS contract_end_date,
		       market_share_percent::text AS market_share_percent,
		       created_at::text AS created_at
		FROM customers
		WHERE username <> $1
		ORDER BY id`,
	KindOrders: `
		SELECT o.id::text AS id, o.customer_id::text AS customer_id, c.username AS customer,
		       o.status, COALESCE(o.pr_number, '') AS pr_number,
		       (SELECT COUNT(*) FROM order_lines l WHERE l.order_id = o.id)::text AS line_count,
		       (SELECT COALESCE(SUM(l.qty), 0) FROM order_lines l WHERE l.order_id = o.id)::text AS total_qty,
		       o.created_at::text AS created_at, o.updated_at::text AS updated_at
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		ORDER BY o.id`,
}

type pgSource struct {
	pool *pgxpool.Pool
}

// NewSource returns a Source reading from PostgreSQL.
func NewSource(pool *pgxpool.Pool) Source {
	return &pgSource{pool: pool}
}

func (s *pgSource) Snapshot(ctx context.Context, kind Kind, header func([]string) error, row func([]string) error) error {
	query, ok := snapshotQueries[kind]
	if !ok {
		return ErrUnknownKind
	}
	var args []any
	if kind == KindCustomers {
		args = append(args, shared.AdminUsername)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}
	if err := header(columns); err != nil {
		return err
	}

	values := make([]string, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("scan %s: %w", kind, err)
		}
		if err := row(append([]string(nil), values...)); err != nil {
			return err
		}
	}
	return rows.Err()
}
