package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labportal/reagent-portal/internal/shared"
)

type stubSource struct {
	columns []string
	rows    [][]string
	err     error
}

func (s stubSource) Snapshot(ctx context.Context, kind Kind, header func([]string) error, row func([]string) error) error {
	if err := header(s.columns); err != nil {
		return err
	}
	for _, r := range s.rows {
		if err := row(r); err != nil {
			return err
		}
	}
	return s.err
}

func TestHeaderRow(t *testing.T) {
	assert.Equal(t,
		[]string{"Id", "Default Price Usd", "Kit Size", "Pr Number"},
		headerRow([]string{"id", "default_price_usd", "kit_size", "pr_number"}))
}

func TestWriteProducts(t *testing.T) {
	svc := NewService(stubSource{
		columns: []string{"code", "name", "default_price_usd"},
		rows: [][]string{
			{"CHEM-100", "Glucose, 4 x 250", "10.00"},
			{"IMM-200", "TSH", "20.50"},
		},
	})
	var buf bytes.Buffer
	require.NoError(t, svc.Write(context.Background(), &buf, KindProducts))

	assert.Equal(t,
		"Code,Name,Default Price Usd\r\nCHEM-100,\"Glucose, 4 x 250\",10.00\r\nIMM-200,TSH,20.50\r\n",
		buf.String())
}

func TestWriteFlushesLargeSnapshots(t *testing.T) {
	rows := make([][]string, 0, 450)
	for i := 0; i < 450; i++ {
		rows = append(rows, []string{fmt.Sprint(i)})
	}
	var buf bytes.Buffer
	require.NoError(t, NewService(stubSource{columns: []string{"id"}, rows: rows}).Write(context.Background(), &buf, KindOrders))
	assert.Equal(t, 451, strings.Count(buf.String(), "\r\n"))
}

func TestWriteRejectsUnknownKind(t *testing.T) {
	err := NewService(stubSource{}).Write(context.Background(), &bytes.Buffer{}, Kind("audit_logs"))
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestWriteWrapsSourceErrors(t *testing.T) {
	err := NewService(stubSource{columns: []string{"id"}, err: errors.New("conn reset")}).
		Write(context.Background(), &bytes.Buffer{}, KindCustomers)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export customers")
}
