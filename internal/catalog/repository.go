package catalog

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

// Repository persists catalog products.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Upsert(ctx context.Context, p Product) (Product, bool, error)
	Get(ctx context.Context, id int64) (*Product, error)
	GetByCode(ctx context.Context, code string) (*Product, error)
	List(ctx context.Context, f Filter) ([]Product, error)
	DeleteByCode(ctx context.Context, code string) error
	Count(ctx context.Context) (int, error)
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

const productColumns = `id, code, name, section, analyser, kit_size, default_price_usd, created_at, updated_at`

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) Upsert(ctx context.Context, p Product) (Product, bool, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO products (code, name, section, analyser, kit_size, default_price_usd)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			section = EXCLUDED.section,
			analyser = EXCLUDED.analyser,
			kit_size = EXCLUDED.kit_size,
			default_price_usd = EXCLUDED.default_price_usd,
			updated_at = NOW()
		RETURNING `+productColumns+`, (xmax = 0) AS inserted`,
		p.Code, p.Name, string(p.Section), string(p.Analyser), p.KitSize, p.DefaultPrice,
	)
	var out Product
	var inserted bool
	err := row.Scan(
		&out.ID, &out.Code, &out.Name, &out.Section, &out.Analyser, &out.KitSize,
		&out.DefaultPrice, &out.CreatedAt, &out.UpdatedAt, &inserted,
	)
	if err != nil {
		return Product{}, false, err
	}
	return out, inserted, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE code = $1`, code)
}

func (r *repository) getOne(ctx context.Context, query string, arg any) (*Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context, f Filter) ([]Product, error) {
	where, args := filterClause(f, 1)
	query := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY name, code`, productColumns, where)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *repository) DeleteByCode(ctx context.Context, code string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE code = $1`, code)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrProductInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

func (r *repository) Audit(ctx context.Context, entry shared.AuditLog) error {
	return shared.NewAuditLogger(r.db).Record(ctx, entry)
}

// FilterClause renders f as a WHERE clause over a products table aliased as
// prefix (empty for none), numbering placeholders from argPos.
func FilterClause(f Filter, prefix string, argPos int) (string, []any) {
	col := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + "." + name
	}

	var conditions []string
	var args []any
	if f.Section != "" {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", col("section"), argPos))
		args = append(args, string(f.Section))
		argPos++
	}
	if f.Analyser != "" {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", col("analyser"), argPos))
		args = append(args, string(f.Analyser))
		argPos++
	}
	if kit := strings.TrimSpace(f.KitSize); kit != "" {
		conditions = append(conditions, fmt.Sprintf("%s ILIKE $%d", col("kit_size"), argPos))
		args = append(args, db.LikePattern(kit))
		argPos++
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		conditions = append(conditions, fmt.Sprintf("(%s ILIKE $%d OR %s ILIKE $%d)", col("code"), argPos, col("name"), argPos))
		args = append(args, db.LikePattern(search))
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func filterClause(f Filter, argPos int) (string, []any) {
	return FilterClause(f, "", argPos)
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Code, &p.Name, &p.Section, &p.Analyser, &p.KitSize,
		&p.DefaultPrice, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

var _ Repository = (*repository)(nil)
