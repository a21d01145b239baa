package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/labportal/reagent-portal/internal/catalog"
	"github.com/labportal/reagent-portal/internal/shared"
)

// Service implements price resolution and fixed-price maintenance.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ResolvePrice returns the fixed price for the exact pair, else the product's
// default price, else zero.
func (s *Service) ResolvePrice(ctx context.Context, customerID, productID int64) (Quote, error) {
	quotes, err := s.repo.Resolve(ctx, customerID, []int64{productID})
	if err != nil {
		return Quote{}, fmt.Errorf("resolve price: %w", err)
	}
	q, ok := quotes[productID]
	if !ok {
		return Quote{ProductID: productID, Amount: decimal.Zero, Source: SourceNone}, nil
	}
	return q, nil
}

// ResolvePrices resolves several products at once.
func (s *Service) ResolvePrices(ctx context.Context, customerID int64, productIDs []int64) (map[int64]Quote, error) {
	quotes, err := s.repo.Resolve(ctx, customerID, dedupe(productIDs))
	if err != nil {
		return nil, fmt.Errorf("resolve prices: %w", err)
	}
	for _, id := range productIDs {
		if _, ok := quotes[id]; !ok {
			quotes[id] = Quote{ProductID: id, Amount: decimal.Zero, Source: SourceNone}
		}
	}
	return quotes, nil
}

// SetFixedPrice stores the override for the pair, replacing any earlier one.
func (s *Service) SetFixedPrice(ctx context.Context, actor shared.Actor, customerID, productID int64, price decimal.Decimal) error {
	if customerID <= 0 || productID <= 0 {
		return shared.Invalid("customer_id/product_id", "must be positive")
	}
	if price.IsNegative() {
		return shared.Invalid("price_usd", "must not be negative")
	}
	price = price.Round(2)
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.UpsertFixedPrice(ctx, customerID, productID, price); err != nil {
			return fmt.Errorf("set fixed price: %w", err)
		}
		return audit(ctx, tx, actor, "fixed_price.set", customerID, productID, map[string]any{
			"price_usd": price.StringFixed(2),
		})
	})
}

// RemoveFixedPrice drops the override so the default price applies again.
func (s *Service) RemoveFixedPrice(ctx context.Context, actor shared.Actor, customerID, productID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.DeleteFixedPrice(ctx, customerID, productID); err != nil {
			return err
		}
		return audit(ctx, tx, actor, "fixed_price.remove", customerID, productID, nil)
	})
}

func audit(ctx context.Context, tx Repository, actor shared.Actor, action string, customerID, productID int64, meta map[string]any) error {
	err := tx.Audit(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "fixed_price",
		EntityID: fmt.Sprintf("%d:%d", customerID, productID),
		Meta:     meta,
	})
	if err != nil {
		return fmt.Errorf("audit %s: %w", action, err)
	}
	return nil
}

// ListFixedPrices returns the overrides held by a customer.
func (s *Service) ListFixedPrices(ctx context.Context, customerID int64) ([]FixedPrice, error) {
	prices, err := s.repo.ListFixedPrices(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list fixed prices: %w", err)
	}
	return prices, nil
}

// PriceList returns the filtered catalog with each product priced for the customer.
func (s *Service) PriceList(ctx context.Context, customerID int64, f catalog.Filter) ([]catalog.PricedProduct, error) {
	if err := catalog.CheckFilter(f); err != nil {
		return nil, err
	}
	products, err := s.repo.PriceList(ctx, customerID, f)
	if err != nil {
		return nil, fmt.Errorf("price list: %w", err)
	}
	return products, nil
}

// Total prices each line as unit price times quantity and sums them.
func (s *Service) Total(ctx context.Context, customerID int64, items []LineItem) (Total, error) {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	quotes, err := s.ResolvePrices(ctx, customerID, ids)
	if err != nil {
		return Total{}, err
	}
	return Price(items, quotes), nil
}

// Price combines line items with already resolved quotes.
func Price(items []LineItem, quotes map[int64]Quote) Total {
	out := Total{Lines: make([]PricedLine, 0, len(items)), Total: decimal.Zero}
	for _, item := range items {
		q, ok := quotes[item.ProductID]
		if !ok {
			q = Quote{ProductID: item.ProductID, Amount: decimal.Zero, Source: SourceNone}
		}
		lineTotal := q.Amount.Mul(decimal.NewFromInt(int64(item.Qty)))
		out.Lines = append(out.Lines, PricedLine{
			LineItem:  item,
			UnitPrice: q.Amount,
			Source:    q.Source,
			LineTotal: lineTotal,
		})
		out.Total = out.Total.Add(lineTotal)
	}
	return out
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
