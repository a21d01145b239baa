package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labportal/reagent-portal/internal/catalog"
	"github.com/labportal/reagent-portal/internal/shared"
)

type pair struct{ customerID, productID int64 }

type mockRepository struct {
	defaults  map[int64]decimal.Decimal
	customers map[int64]bool
	fixed     map[pair]decimal.Decimal
	audits    []shared.AuditLog

	// Error injection
	resolveErr error
	auditErr   error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		defaults:  make(map[int64]decimal.Decimal),
		customers: make(map[int64]bool),
		fixed:     make(map[pair]decimal.Decimal),
	}
}

// WithTx restores the previous state when fn fails.
func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	fixed := make(map[pair]decimal.Decimal, len(m.fixed))
	for k, v := range m.fixed {
		fixed[k] = v
	}
	audits := append([]shared.AuditLog(nil), m.audits...)
	if err := fn(ctx, m); err != nil {
		m.fixed, m.audits = fixed, audits
		return err
	}
	return nil
}

func (m *mockRepository) Audit(ctx context.Context, entry shared.AuditLog) error {
	if m.auditErr != nil {
		return m.auditErr
	}
	m.audits = append(m.audits, entry)
	return nil
}

var admin = shared.NewActor(1, shared.AdminUsername)

func (m *mockRepository) UpsertFixedPrice(ctx context.Context, customerID, productID int64, price decimal.Decimal) error {
	if _, ok := m.defaults[productID]; !ok || !m.customers[customerID] {
		return ErrUnknownParty
	}
	m.fixed[pair{customerID, productID}] = price
	return nil
}

func (m *mockRepository) DeleteFixedPrice(ctx context.Context, customerID, productID int64) error {
	key := pair{customerID, productID}
	if _, ok := m.fixed[key]; !ok {
		return ErrFixedPriceNotFound
	}
	delete(m.fixed, key)
	return nil
}

func (m *mockRepository) ListFixedPrices(ctx context.Context, customerID int64) ([]FixedPrice, error) {
	out := []FixedPrice{}
	for k, v := range m.fixed {
		if k.customerID == customerID {
			out = append(out, FixedPrice{CustomerID: k.customerID, ProductID: k.productID, Price: v})
		}
	}
	return out, nil
}

func (m *mockRepository) Resolve(ctx context.Context, customerID int64, productIDs []int64) (map[int64]Quote, error) {
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	out := make(map[int64]Quote, len(productIDs))
	for _, id := range productIDs {
		var fixed, def decimal.NullDecimal
		if v, ok := m.fixed[pair{customerID, id}]; ok {
			fixed = decimal.NewNullDecimal(v)
		}
		if v, ok := m.defaults[id]; ok {
			def = decimal.NewNullDecimal(v)
		}
		out[id] = resolve(id, fixed, def)
	}
	return out, nil
}

func (m *mockRepository) PriceList(ctx context.Context, customerID int64, f catalog.Filter) ([]catalog.PricedProduct, error) {
	out := []catalog.PricedProduct{}
	for id, def := range m.defaults {
		var fixed decimal.NullDecimal
		if v, ok := m.fixed[pair{customerID, id}]; ok {
			fixed = decimal.NewNullDecimal(v)
		}
		q := resolve(id, fixed, decimal.NewNullDecimal(def))
		out = append(out, catalog.PricedProduct{Product: catalog.Product{ID: id, DefaultPrice: def}, Price: q.Amount, PriceSource: string(q.Source)})
	}
	return out, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestResolvePriceScenario(t *testing.T) {
	repo := newMockRepository()
	repo.defaults[42] = dec("10.00")
	repo.customers[5] = true
	repo.customers[6] = true
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.SetFixedPrice(ctx, admin, 5, 42, dec("7.50")))

	q, err := svc.ResolvePrice(ctx, 5, 42)
	require.NoError(t, err)
	assert.True(t, dec("7.50").Equal(q.Amount))
	assert.Equal(t, SourceFixed, q.Source)

	q, err = svc.ResolvePrice(ctx, 6, 42)
	require.NoError(t, err)
	assert.True(t, dec("10.00").Equal(q.Amount))
	assert.Equal(t, SourceDefault, q.Source)

	q, err = svc.ResolvePrice(ctx, 5, 999)
	require.NoError(t, err)
	assert.True(t, q.Amount.IsZero())
	assert.Equal(t, SourceNone, q.Source)
}

func TestSetFixedPriceTwiceKeepsLatest(t *testing.T) {
	repo := newMockRepository()
	repo.defaults[42] = dec("10")
	repo.customers[5] = true
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.SetFixedPrice(ctx, admin, 5, 42, dec("8")))
	require.NoError(t, svc.SetFixedPrice(ctx, admin, 5, 42, dec("6.255")))

	prices, err := svc.ListFixedPrices(ctx, 5)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, "6.26", prices[0].Price.StringFixed(2))
}

func TestSetFixedPriceValidation(t *testing.T) {
	repo := newMockRepository()
	repo.defaults[42] = dec("10")
	repo.customers[5] = true
	svc := NewService(repo)
	ctx := context.Background()

	assert.ErrorIs(t, svc.SetFixedPrice(ctx, admin, 5, 42, dec("-1")), shared.ErrValidation)
	assert.ErrorIs(t, svc.SetFixedPrice(ctx, admin, 0, 42, dec("1")), shared.ErrValidation)
	assert.ErrorIs(t, svc.SetFixedPrice(ctx, admin, 77, 42, dec("1")), shared.ErrNotFound)
}

func TestRemoveFixedPriceFallsBackToDefault(t *testing.T) {
	repo := newMockRepository()
	repo.defaults[42] = dec("10")
	repo.customers[5] = true
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.SetFixedPrice(ctx, admin, 5, 42, dec("1")))
	require.NoError(t, svc.RemoveFixedPrice(ctx, admin, 5, 42))
	q, err := svc.ResolvePrice(ctx, 5, 42)
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, q.Source)

	assert.ErrorIs(t, svc.RemoveFixedPrice(ctx, admin, 5, 42), shared.ErrNotFound)

	require.Len(t, repo.audits, 2)
	assert.Equal(t, "fixed_price.set", repo.audits[0].Action)
	assert.Equal(t, "5:42", repo.audits[0].EntityID)
	assert.Equal(t, "1.00", repo.audits[0].Meta["price_usd"])
	assert.Equal(t, "fixed_price.remove", repo.audits[1].Action)
}

func TestFixedPriceRollsBackWhenAuditFails(t *testing.T) {
	repo := newMockRepository()
	repo.defaults[42] = dec("10")
	repo.customers[5] = true
	svc := NewService(repo)
	ctx := context.Background()

	repo.auditErr = errors.New("audit insert failed")
	require.Error(t, svc.SetFixedPrice(ctx, admin, 5, 42, dec("7.50")))
	q, err := svc.ResolvePrice(ctx, 5, 42)
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, q.Source, "override must not persist without its audit entry")

	repo.auditErr = nil
	require.NoError(t, svc.SetFixedPrice(ctx, admin, 5, 42, dec("7.50")))
	repo.auditErr = errors.New("audit insert failed")
	require.Error(t, svc.RemoveFixedPrice(ctx, admin, 5, 42))
	q, err = svc.ResolvePrice(ctx, 5, 42)
	require.NoError(t, err)
	assert.Equal(t, SourceFixed, q.Source)
}

func TestTotal(t *testing.T) {
	repo := newMockRepository()
	repo.defaults[1] = dec("10.00")
	repo.defaults[2] = dec("4.25")
	repo.customers[5] = true
	svc := NewService(repo)
	ctx := context.Background()
	require.NoError(t, svc.SetFixedPrice(ctx, admin, 5, 1, dec("7.50")))

	total, err := svc.Total(ctx, 5, []LineItem{{ProductID: 1, Qty: 3}, {ProductID: 2, Qty: 1}, {ProductID: 1, Qty: 1}})
	require.NoError(t, err)
	require.Len(t, total.Lines, 3)
	assert.Equal(t, "22.50", total.Lines[0].LineTotal.StringFixed(2))
	assert.Equal(t, SourceDefault, total.Lines[1].Source)
	assert.Equal(t, "34.25", total.Total.StringFixed(2))

	empty, err := svc.Total(ctx, 5, nil)
	require.NoError(t, err)
	assert.True(t, empty.Total.IsZero())
	assert.Empty(t, empty.Lines)
}

func TestResolveErrorIsWrapped(t *testing.T) {
	repo := newMockRepository()
	repo.resolveErr = errors.New("timeout")
	_, err := NewService(repo).ResolvePrice(context.Background(), 1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve price: timeout")
}

func TestPriceListRejectsUnknownFilter(t *testing.T) {
	_, err := NewService(newMockRepository()).PriceList(context.Background(), 5, catalog.Filter{Section: "Virology"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}
