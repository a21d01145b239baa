// Package dbtest opens a migrated PostgreSQL pool for repository tests.
package dbtest

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/labportal/reagent-portal/internal/platform/db"
	"github.com/labportal/reagent-portal/internal/shared"
)

// DSNEnv names the variable that enables database tests.
const DSNEnv = "PORTAL_TEST_PG_DSN"

// Open connects to the test database, applies the schema and empties every
// table except the admin row. Tests are skipped when DSNEnv is unset.
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(DSNEnv)
	if dsn == "" {
		t.Skipf("%s not set; skipping postgres test", DSNEnv)
	}
	ctx := context.Background()
	pool, err := db.New(ctx, dsn, db.PoolOptions{MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, pool, shared.AdminUsername, string(hash)))

	_, err = pool.Exec(ctx, `TRUNCATE order_lines, orders, fixed_prices, products, announcements, audit_logs, idempotency_keys RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `DELETE FROM customers WHERE username <> $1`, shared.AdminUsername)
	require.NoError(t, err)
	return pool
}
