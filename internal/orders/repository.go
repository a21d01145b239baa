package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labportal/reagent-portal/internal/platform/db"
	"github.com/labportal/reagent-portal/internal/shared"
)

// Repository persists orders and their lines.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Create(ctx context.Context, customerID int64) (Order, error)
	InsertLine(ctx context.Context, orderID int64, in LineInput) (Line, error)
	Get(ctx context.Context, id int64) (*Order, error)
	// Lock reads an order and holds a row lock until the transaction ends.
	Lock(ctx context.Context, id int64) (*Order, error)
	UpdateStatus(ctx context.Context, id int64, status Status, prNumber *string) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f ListFilter) ([]Order, int, error)
	// Lines returns the lines of an order. A non-zero customerID restricts the
	// result to orders that customer owns.
	Lines(ctx context.Context, orderID, customerID int64) ([]Line, error)
	ProductLines(ctx context.Context, orderID int64) ([]ProductLine, error)
	CountLines(ctx context.Context, orderID int64) (int, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
	Audit(ctx context.Context, entry shared.AuditLog) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

const orderColumns = `id, customer_id, status, pr_number, created_at, updated_at`

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) Create(ctx context.Context, customerID int64) (Order, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO orders (customer_id, status) VALUES ($1, $2)
		RETURNING `+orderColumns, customerID, string(StatusDraft))
	return scanOrder(row)
}

func (r *repository) InsertLine(ctx context.Context, orderID int64, in LineInput) (Line, error) {
	line := Line{OrderID: orderID, ProductID: in.ProductID, Qty: in.Qty}
	err := r.db.QueryRow(ctx, `
		INSERT INTO order_lines (order_id, product_id, qty) VALUES ($1, $2, $3)
		RETURNING id`, orderID, in.ProductID, in.Qty).Scan(&line.ID)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Line{}, fmt.Errorf("%w (product_id %d)", ErrUnknownProduct, in.ProductID)
		}
		return Line{}, err
	}
	return line, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *repository) Lock(ctx context.Context, id int64) (*Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *repository) getOne(ctx context.Context, query string, id int64) (*Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

// UpdateStatus writes the status and, when prNumber is non-nil, the PR number
// in one statement.
func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status, prNumber *string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = $2, pr_number = COALESCE($3, pr_number), updated_at = NOW()
		WHERE id = $1`, id, string(status), prNumber)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM order_lines WHERE order_id = $1`, id); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]Order, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if f.CustomerID > 0 {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argPos))
		args = append(args, f.CustomerID)
		argPos++
	}
	if f.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, string(f.Status))
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM orders "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(f.Page, f.PerPage, total)
	query := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, whereClause, argPos, argPos+1)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (r *repository) Lines(ctx context.Context, orderID, customerID int64) ([]Line, error) {
	rows, err := r.db.Query(ctx, `
		SELECT l.id, l.order_id, l.product_id, l.qty
		FROM order_lines l
		JOIN orders o ON o.id = l.order_id
		WHERE l.order_id = $1 AND ($2::bigint = 0 OR o.customer_id = $2)
		ORDER BY l.id`, orderID, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []Line{}
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Qty); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) ProductLines(ctx context.Context, orderID int64) ([]ProductLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT l.id, l.order_id, l.product_id, l.qty, p.code, p.name
		FROM order_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.order_id = $1
		ORDER BY l.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []ProductLine{}
	for rows.Next() {
		var l ProductLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Qty, &l.ProductCode, &l.ProductName); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) CountLines(ctx context.Context, orderID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM order_lines WHERE order_id = $1`, orderID).Scan(&n)
	return n, err
}

func (r *repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		counts[s] = 0
	}
	for rows.Next() {
		var s Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		counts[s] = n
	}
	return counts, rows.Err()
}

func (r *repository) Audit(ctx context.Context, entry shared.AuditLog) error {
	return shared.NewAuditLogger(r.db).Record(ctx, entry)
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.Status, &o.PRNumber, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

var _ Repository = (*repository)(nil)
