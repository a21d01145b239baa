package announcements

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labportal/reagent-portal/internal/platform/db"
	"github.com/labportal/reagent-portal/internal/shared"
)

// Repository persists announcements.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Create(ctx context.Context, title, body string) (Announcement, error)
	ListActive(ctx context.Context) ([]Announcement, error)
	Deactivate(ctx context.Context, id int64) error
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

func (r *repository) Create(ctx context.Context, title, body string) (Announcement, error) {
	var a Announcement
	err := r.db.QueryRow(ctx, `
		INSERT INTO announcements (title, body, is_active) VALUES ($1, $2, TRUE)
		RETURNING id, title, body, is_active, created_at`, title, body,
	).Scan(&a.ID, &a.Title, &a.Body, &a.IsActive, &a.CreatedAt)
	return a, err
}

func (r *repository) ListActive(ctx context.Context) ([]Announcement, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, title, body, is_active, created_at
		FROM announcements
		WHERE is_active
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Announcement{}
	for rows.Next() {
		var a Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Deactivate hides an announcement. Deactivating an inactive one succeeds.
func (r *repository) Deactivate(ctx context.Context, id int64) error {
	var found int64
	err := r.db.QueryRow(ctx, `
		UPDATE announcements SET is_active = FALSE WHERE id = $1 RETURNING id`, id,
	).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAnnouncementNotFound
	}
	return err
}

func (r *repository) Audit(ctx context.Context, entry shared.AuditLog) error {
	return shared.NewAuditLogger(r.db).Record(ctx, entry)
}

var _ Repository = (*repository)(nil)
