package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyHeader carries the client supplied key on retried writes.
const IdempotencyHeader = "Idempotency-Key"

// ErrIdempotencyConflict indicates the key was already used in the scope.
var ErrIdempotencyConflict = fmt.Errorf("idempotent request already processed: %w", ErrAlreadyExists)

// IdempotencyStore persists processed keys per scope.
type IdempotencyStore struct {
	pool *pgxpool.Pool
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool}
}

// Claim records key under scope, failing with ErrIdempotencyConflict when it
// was claimed before.
func (s *IdempotencyStore) Claim(ctx context.Context, key, scope string) error {
	if s == nil {
		return errors.New("idempotency store not initialised")
	}
	if key == "" || scope == "" {
		return Invalid("idempotency_key", "key and scope are required")
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO idempotency_keys (key, scope, created_at) VALUES ($1, $2, $3)`, key, scope, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

// Release forgets a key, used when the guarded work failed.
func (s *IdempotencyStore) Release(ctx context.Context, key, scope string) error {
	if s == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1 AND scope = $2`, key, scope)
	return err
}

// Cleanup removes entries older than retention.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
