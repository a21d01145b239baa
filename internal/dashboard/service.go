// Package dashboard aggregates the counts shown on the admin landing page.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/labportal/reagent-portal/internal/orders"
)

// Stats is the admin dashboard payload.
type Stats struct {
	TotalOrders    int                   `json:"total_orders"`
	TotalProducts  int                   `json:"total_products"`
	TotalCustomers int                   `json:"total_customers"`
	OrdersByStatus map[orders.Status]int `json:"orders_by_status"`
	GeneratedAt    time.Time             `json:"generated_at"`
}

// OrderCounter counts orders per status.
type OrderCounter interface {
	CountByStatus(ctx context.Context) (map[orders.Status]int, error)
}

// Counter counts rows of a single entity.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Service builds dashboard stats.
type Service struct {
	orders    OrderCounter
	products  Counter
	customers Counter
	cache     *Cache
	group     singleflight.Group
	now       func() time.Time
}

// NewService wires the counters. cache may be nil.
func NewService(orders OrderCounter, products, customers Counter, cache *Cache) *Service {
	return &Service{orders: orders, products: products, customers: customers, cache: cache, now: time.Now}
}

// loadTimeout bounds a shared load once it no longer follows any caller.
const loadTimeout = 10 * time.Second

// Stats returns the current totals. Concurrent callers share one load, which
// runs detached from the caller that started it.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	ch := s.group.DoChan("stats", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		key, err := s.cache.BuildKey(ctx, "dashboard", "stats")
		if err != nil {
			return nil, err
		}
		var out Stats
		if err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			return s.load(ctx)
		}); err != nil {
			return nil, err
		}
		return out, nil
	})
	select {
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Stats{}, fmt.Errorf("dashboard stats: %w", res.Err)
		}
		return res.Val.(Stats), nil
	}
}

// Refresh drops cached stats so the next call recomputes them.
func (s *Service) Refresh(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) load(ctx context.Context) (Stats, error) {
	out := Stats{GeneratedAt: s.now().UTC()}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.orders.CountByStatus(ctx)
		if err != nil {
			return fmt.Errorf("orders: %w", err)
		}
		out.OrdersByStatus = counts
		return nil
	})
	g.Go(func() error {
		n, err := s.products.Count(ctx)
		if err != nil {
			return fmt.Errorf("products: %w", err)
		}
		out.TotalProducts = n
		return nil
	})
	g.Go(func() error {
		n, err := s.customers.Count(ctx)
		if err != nil {
			return fmt.Errorf("customers: %w", err)
		}
		out.TotalCustomers = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	for _, n := range out.OrdersByStatus {
		out.TotalOrders += n
	}
	return out, nil
}
