package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labportal/reagent-portal/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByUsername fetches an account by its login name.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*Account, error) {
	return r.findOne(ctx, `SELECT id, username, name, password_hash FROM customers WHERE username = $1`, username)
}

// FindByID fetches an account by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*Account, error) {
	return r.findOne(ctx, `SELECT id, username, name, password_hash FROM customers WHERE id = $1`, id)
}

func (r *PGRepository) findOne(ctx context.Context, query string, arg any) (*Account, error) {
	var a Account
	err := r.pool.QueryRow(ctx, query, arg).Scan(&a.ID, &a.Username, &a.Name, &a.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// UpdatePasswordHash stores a new password hash.
func (r *PGRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE customers SET password_hash = $1, updated_at = NOW() WHERE id = $2`, hash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
