package orders

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/labportal/reagent-portal/internal/pricing"
	"github.com/labportal/reagent-portal/internal/shared"
)

type mockRepository struct {
	orders   map[int64]*Order
	lines    map[int64][]Line
	products map[int64]ProductLine
	audits   []shared.AuditLog

	nextOrderID int64
	nextLineID  int64
	clock       time.Time

	// Error injection
	auditErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		orders: make(map[int64]*Order),
		lines:  make(map[int64][]Line),
		products: map[int64]ProductLine{
			1: {Line: Line{ProductID: 1}, ProductCode: "CHEM-100", ProductName: "Glucose"},
			2: {Line: Line{ProductID: 2}, ProductCode: "IMM-200", ProductName: "TSH"},
		},
		nextOrderID: 1,
		nextLineID:  1,
		clock:       time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

// WithTx restores the previous state when fn fails.
func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	orders := make(map[int64]*Order, len(m.orders))
	for id, o := range m.orders {
		cp := *o
		orders[id] = &cp
	}
	lines := make(map[int64][]Line, len(m.lines))
	for id, ls := range m.lines {
		lines[id] = append([]Line(nil), ls...)
	}
	audits := append([]shared.AuditLog(nil), m.audits...)
	nextOrderID, nextLineID := m.nextOrderID, m.nextLineID

	if err := fn(ctx, m); err != nil {
		m.orders, m.lines, m.audits = orders, lines, audits
		m.nextOrderID, m.nextLineID = nextOrderID, nextLineID
		return err
	}
	return nil
}

func (m *mockRepository) Create(ctx context.Context, customerID int64) (Order, error) {
	m.clock = m.clock.Add(time.Minute)
	o := Order{ID: m.nextOrderID, CustomerID: customerID, Status: StatusDraft, CreatedAt: m.clock, UpdatedAt: m.clock}
	m.nextOrderID++
	stored := o
	m.orders[o.ID] = &stored
	return o, nil
}

func (m *mockRepository) InsertLine(ctx context.Context, orderID int64, in LineInput) (Line, error) {
	if _, ok := m.products[in.ProductID]; !ok {
		return Line{}, ErrUnknownProduct
	}
	l := Line{ID: m.nextLineID, OrderID: orderID, ProductID: in.ProductID, Qty: in.Qty}
	m.nextLineID++
	m.lines[orderID] = append(m.lines[orderID], l)
	return l, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockRepository) Lock(ctx context.Context, id int64) (*Order, error) {
	return m.Get(ctx, id)
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id int64, status Status, prNumber *string) error {
	o, ok := m.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = status
	if prNumber != nil {
		pr := *prNumber
		o.PRNumber = &pr
	}
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.orders[id]; !ok {
		return ErrOrderNotFound
	}
	delete(m.lines, id)
	delete(m.orders, id)
	return nil
}

func (m *mockRepository) List(ctx context.Context, f ListFilter) ([]Order, int, error) {
	all := []Order{}
	for _, o := range m.orders {
		if f.CustomerID > 0 && o.CustomerID != f.CustomerID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		all = append(all, *o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	page := shared.NewPagination(f.Page, f.PerPage, len(all))
	start := page.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + page.PerPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (m *mockRepository) Lines(ctx context.Context, orderID, customerID int64) ([]Line, error) {
	out := []Line{}
	o, ok := m.orders[orderID]
	if !ok || (customerID != 0 && o.CustomerID != customerID) {
		return out, nil
	}
	return append(out, m.lines[orderID]...), nil
}

func (m *mockRepository) ProductLines(ctx context.Context, orderID int64) ([]ProductLine, error) {
	out := []ProductLine{}
	for _, l := range m.lines[orderID] {
		p := m.products[l.ProductID]
		out = append(out, ProductLine{Line: l, ProductCode: p.ProductCode, ProductName: p.ProductName})
	}
	return out, nil
}

func (m *mockRepository) CountLines(ctx context.Context, orderID int64) (int, error) {
	return len(m.lines[orderID]), nil
}

func (m *mockRepository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	counts := make(map[Status]int)
	for _, s := range Statuses {
		counts[s] = 0
	}
	for _, o := range m.orders {
		counts[o.Status]++
	}
	return counts, nil
}

func (m *mockRepository) Audit(ctx context.Context, entry shared.AuditLog) error {
	if m.auditErr != nil {
		return m.auditErr
	}
	m.audits = append(m.audits, entry)
	return nil
}

// stubPricer prices product 1 at 7.50 for customer 5 and 10.00 for everyone
// else; product 2 costs 20.00.
type stubPricer struct{}

func (stubPricer) Total(ctx context.Context, customerID int64, items []pricing.LineItem) (pricing.Total, error) {
	quotes := map[int64]pricing.Quote{
		1: {ProductID: 1, Amount: decimal.RequireFromString("10.00"), Source: pricing.SourceDefault},
		2: {ProductID: 2, Amount: decimal.RequireFromString("20.00"), Source: pricing.SourceDefault},
	}
	if customerID == 5 {
		quotes[1] = pricing.Quote{ProductID: 1, Amount: decimal.RequireFromString("7.50"), Source: pricing.SourceFixed}
	}
	return pricing.Price(items, quotes), nil
}

type recordingObserver struct {
	seen []string
}

func (r *recordingObserver) ObserveTransition(from, to string) {
	r.seen = append(r.seen, from+"->"+to)
}

type memKeys struct {
	claimed map[string]bool
}

func (m *memKeys) Claim(ctx context.Context, key, scope string) error {
	if m.claimed == nil {
		m.claimed = make(map[string]bool)
	}
	if m.claimed[scope+"|"+key] {
		return shared.ErrIdempotencyConflict
	}
	m.claimed[scope+"|"+key] = true
	return nil
}

func (m *memKeys) Release(ctx context.Context, key, scope string) error {
	delete(m.claimed, scope+"|"+key)
	return nil
}
