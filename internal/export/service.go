// Package export streams table snapshots as CSV.
package export

import (
	"context"
	"fmt"
	"io"

	"github.com/labportal/reagent-portal/internal/shared"
)

// Kind names an exportable table.
type Kind string

const (
	KindProducts  Kind = "products"
	KindCustomers Kind = "customers"
	KindOrders    Kind = "orders"
)

// Kinds lists every exportable table.
var Kinds = []Kind{KindProducts, KindCustomers, KindOrders}

// Valid reports whether k is exportable.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ErrUnknownKind is returned for tables that cannot be exported.
var ErrUnknownKind = fmt.Errorf("export %w", shared.ErrNotFound)

// Source reads a snapshot, calling header once before any row.
type Source interface {
	Snapshot(ctx context.Context, kind Kind, header func(columns []string) error, row func(values []string) error) error
}

// Service writes CSV snapshots.
type Service struct {
	source Source
}

// NewService constructs a Service.
func NewService(source Source) *Service {
	return &Service{source: source}
}

// Write streams the snapshot of kind to w.
func (s *Service) Write(ctx context.Context, w io.Writer, kind Kind) error {
	if !kind.Valid() {
		return ErrUnknownKind
	}
	streamer := newCSVStreamer(w)
	err := s.source.Snapshot(ctx, kind,
		func(columns []string) error { return streamer.writeRow(headerRow(columns)) },
		streamer.writeRow,
	)
	if err != nil {
		return fmt.Errorf("export %s: %w", kind, err)
	}
	return streamer.Flush()
}
