package export

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labportal/reagent-portal/internal/platform/db/dbtest"
)

func TestPostgresSnapshots(t *testing.T) {
	pool := dbtest.Open(t)
	ctx := context.Background()
	_, err := pool.Exec(ctx, `
		INSERT INTO customers (username, password_hash, name, type, market_share_percent)
		VALUES ('lab-north', 'secret-hash', 'North Lab', 'Direct', 12.5)`)
	require.NoError(t, err)

	svc := NewService(NewSource(pool))
	var buf bytes.Buffer
	require.NoError(t, svc.Write(ctx, &buf, KindCustomers))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\r\n")
	require.Len(t, lines, 2, "admin is excluded")
	assert.True(t, strings.HasPrefix(lines[0], "Id,Username,Name,Type,Phone,Email,Location,Contract End Date,Market Share Percent"))
	assert.Contains(t, lines[1], "lab-north")
	assert.NotContains(t, buf.String(), "secret-hash")

	buf.Reset()
	require.NoError(t, svc.Write(ctx, &buf, KindOrders))
	assert.True(t, strings.HasPrefix(buf.String(), "Id,Customer Id,Customer,Status,Pr Number,Line Count,Total Qty"))
}
