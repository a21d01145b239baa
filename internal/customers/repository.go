package customers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labportal/reagent-portal/internal/platform/db"
	"github.com/labportal/reagent-portal/internal/shared"
)

// Repository persists customer accounts.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Create(ctx context.Context, c Customer) (Customer, error)
	Get(ctx context.Context, id int64) (*Customer, error)
	List(ctx context.Context, req ListCustomersRequest) ([]Customer, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	SetPasswordHash(ctx context.Context, id int64, hash string) error
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

const customerColumns = `id, username, password_hash, name, type, phone, email, location,
	contract_end_date, market_share_percent, created_at, updated_at`

// updatable whitelists the columns Update may write.
var updatable = map[string]struct{}{
	"username":             {},
	"name":                 {},
	"type":                 {},
	"phone":                {},
	"email":                {},
	"location":             {},
	"contract_end_date":    {},
	"market_share_percent": {},
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) Create(ctx context.Context, c Customer) (Customer, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO customers (username, password_hash, name, type, phone, email, location,
			contract_end_date, market_share_percent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+customerColumns,
		c.Username, c.PasswordHash, c.Name, string(c.Type), textArg(c.Phone), textArg(c.Email),
		textArg(c.Location), dateArg(c.ContractEndDate), c.MarketSharePercent,
	)
	created, err := scanCustomer(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Customer{}, ErrUsernameTaken
		}
		return Customer{}, err
	}
	return created, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, req ListCustomersRequest) ([]Customer, error) {
	var conditions []string
	var args []any
	argPos := 1

	if !req.IncludeAdmin {
		conditions = append(conditions, fmt.Sprintf("username <> $%d", argPos))
		args = append(args, shared.AdminUsername)
		argPos++
	}
	if search := strings.TrimSpace(req.Search); search != "" {
		conditions = append(conditions, fmt.Sprintf("(username ILIKE $%d OR name ILIKE $%d OR email ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, db.LikePattern(search))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM customers %s ORDER BY COALESCE(NULLIF(name, ''), username), id`, customerColumns, whereClause)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update writes the given columns. Keys outside the whitelist are rejected.
func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	keys := make([]string, 0, len(updates))
	for k := range updates {
		if _, ok := updatable[k]; !ok {
			return fmt.Errorf("customers: column %q is not updatable", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys)+1)
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		sets = append(sets, fmt.Sprintf("%s = $%d", k, i+1))
		args = append(args, updates[k])
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE customers SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

func (r *repository) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE customers SET password_hash = $1, updated_at = NOW() WHERE id = $2`, hash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE username <> $1`, shared.AdminUsername).Scan(&n)
	return n, err
}

func (r *repository) Audit(ctx context.Context, entry shared.AuditLog) error {
	return shared.NewAuditLogger(r.db).Record(ctx, entry)
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	var phone, email, location pgtype.Text
	var contractEnd pgtype.Date
	err := row.Scan(
		&c.ID, &c.Username, &c.PasswordHash, &c.Name, &c.Type, &phone, &email, &location,
		&contractEnd, &c.MarketSharePercent, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return Customer{}, err
	}
	if phone.Valid {
		c.Phone = &phone.String
	}
	if email.Valid {
		c.Email = &email.String
	}
	if location.Valid {
		c.Location = &location.String
	}
	if contractEnd.Valid {
		c.ContractEndDate = &Date{contractEnd.Time}
	}
	return c, nil
}

func textArg(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func dateArg(d *Date) pgtype.Date {
	if d == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: d.Time, Valid: true}
}

var _ Repository = (*repository)(nil)
