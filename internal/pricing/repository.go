package pricing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/labportal/reagent-portal/internal/catalog"
	"github.com/labportal/reagent-portal/internal/platform/db"
	"github.com/labportal/reagent-portal/internal/shared"
)

// Repository persists fixed prices and answers price lookups.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	UpsertFixedPrice(ctx context.Context, customerID, productID int64, price decimal.Decimal) error
	DeleteFixedPrice(ctx context.Context, customerID, productID int64) error
	ListFixedPrices(ctx context.Context, customerID int64) ([]FixedPrice, error)
	Resolve(ctx context.Context, customerID int64, productIDs []int64) (map[int64]Quote, error)
	PriceList(ctx context.Context, customerID int64, f catalog.Filter) ([]catalog.PricedProduct, error)
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

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) Audit(ctx context.Context, entry shared.AuditLog) error {
	return shared.NewAuditLogger(r.db).Record(ctx, entry)
}

func (r *repository) UpsertFixedPrice(ctx context.Context, customerID, productID int64, price decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO fixed_prices (customer_id, product_id, price_usd)
		VALUES ($1, $2, $3)
		ON CONFLICT (customer_id, product_id) DO UPDATE SET
			price_usd = EXCLUDED.price_usd,
			updated_at = NOW()`,
		customerID, productID, price,
	)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrUnknownParty
		}
		return err
	}
	return nil
}

func (r *repository) DeleteFixedPrice(ctx context.Context, customerID, productID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM fixed_prices WHERE customer_id = $1 AND product_id = $2`, customerID, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFixedPriceNotFound
	}
	return nil
}

func (r *repository) ListFixedPrices(ctx context.Context, customerID int64) ([]FixedPrice, error) {
	rows, err := r.db.Query(ctx, `
		SELECT fp.customer_id, fp.product_id, p.code, p.name, fp.price_usd, fp.updated_at
		FROM fixed_prices fp
		JOIN products p ON p.id = fp.product_id
		WHERE fp.customer_id = $1
		ORDER BY p.name, p.code`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := []FixedPrice{}
	for rows.Next() {
		var fp FixedPrice
		if err := rows.Scan(&fp.CustomerID, &fp.ProductID, &fp.ProductCode, &fp.ProductName, &fp.Price, &fp.UpdatedAt); err != nil {
			return nil, err
		}
		prices = append(prices, fp)
	}
	return prices, rows.Err()
}

// Resolve returns a quote for every requested product id. Ids with no product
// row resolve to a zero quote.
func (r *repository) Resolve(ctx context.Context, customerID int64, productIDs []int64) (map[int64]Quote, error) {
	quotes := make(map[int64]Quote, len(productIDs))
	if len(productIDs) == 0 {
		return quotes, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT ids.id, fp.price_usd, p.default_price_usd
		FROM UNNEST($2::bigint[]) AS ids(id)
		LEFT JOIN products p ON p.id = ids.id
		LEFT JOIN fixed_prices fp ON fp.product_id = ids.id AND fp.customer_id = $1`,
		customerID, productIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var fixed, def decimal.NullDecimal
		if err := rows.Scan(&id, &fixed, &def); err != nil {
			return nil, err
		}
		quotes[id] = resolve(id, fixed, def)
	}
	return quotes, rows.Err()
}

func (r *repository) PriceList(ctx context.Context, customerID int64, f catalog.Filter) ([]catalog.PricedProduct, error) {
	where, args := catalog.FilterClause(f, "p", 2)
	query := fmt.Sprintf(`
		SELECT p.id, p.code, p.name, p.section, p.analyser, p.kit_size, p.default_price_usd,
		       p.created_at, p.updated_at, fp.price_usd
		FROM products p
		LEFT JOIN fixed_prices fp ON fp.product_id = p.id AND fp.customer_id = $1
		%s
		ORDER BY p.name, p.code`, where)

	rows, err := r.db.Query(ctx, query, append([]any{customerID}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []catalog.PricedProduct{}
	for rows.Next() {
		var p catalog.Product
		var fixed decimal.NullDecimal
		err := rows.Scan(
			&p.ID, &p.Code, &p.Name, &p.Section, &p.Analyser, &p.KitSize, &p.DefaultPrice,
			&p.CreatedAt, &p.UpdatedAt, &fixed,
		)
		if err != nil {
			return nil, err
		}
		q := resolve(p.ID, fixed, decimal.NewNullDecimal(p.DefaultPrice))
		out = append(out, catalog.PricedProduct{Product: p, Price: q.Amount, PriceSource: string(q.Source)})
	}
	return out, rows.Err()
}

var _ Repository = (*repository)(nil)
