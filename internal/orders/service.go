package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/labportal/reagent-portal/internal/pricing"
	"github.com/labportal/reagent-portal/internal/shared"
)

// Pricer totals order lines at a customer's prices.
type Pricer interface {
	Total(ctx context.Context, customerID int64, items []pricing.LineItem) (pricing.Total, error)
}

// TransitionObserver is told about every committed status change.
type TransitionObserver interface {
	ObserveTransition(from, to string)
}

// KeyClaimer deduplicates retried order placements.
type KeyClaimer interface {
	Claim(ctx context.Context, key, scope string) error
	Release(ctx context.Context, key, scope string) error
}

// Service implements the order lifecycle.
type Service struct {
	repo     Repository
	prices   Pricer
	observer TransitionObserver
	keys     KeyClaimer
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewService constructs a Service. observer and logger may be nil.
func NewService(repo Repository, prices Pricer, observer TransitionObserver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		prices:   prices,
		observer: observer,
		logger:   logger,
		validate: shared.NewValidator(),
		now:      time.Now,
	}
}

// UseIdempotencyKeys makes Create honour CreateOrderRequest.IdempotencyKey.
func (s *Service) UseIdempotencyKeys(keys KeyClaimer) {
	s.keys = keys
}

// Create places a Draft order for the actor with all lines in one transaction.
// A repeated idempotency key from the same actor fails with
// shared.ErrIdempotencyConflict.
func (s *Service) Create(ctx context.Context, actor shared.Actor, req CreateOrderRequest) (*Order, error) {
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return nil, err
	}
	if s.keys != nil && req.IdempotencyKey != "" {
		scope := "orders:" + strconv.FormatInt(actor.ID, 10)
		if err := s.keys.Claim(ctx, req.IdempotencyKey, scope); err != nil {
			return nil, fmt.Errorf("create order: %w", err)
		}
		order, err := s.create(ctx, actor, req)
		if err != nil {
			if relErr := s.keys.Release(ctx, req.IdempotencyKey, scope); relErr != nil {
				s.logger.Warn("release idempotency key", slog.Any("error", relErr))
			}
			return nil, err
		}
		return order, nil
	}
	return s.create(ctx, actor, req)
}

func (s *Service) create(ctx context.Context, actor shared.Actor, req CreateOrderRequest) (*Order, error) {
	var created Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		order, err := tx.Create(ctx, actor.ID)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		order.Lines = make([]Line, 0, len(req.Lines))
		for _, in := range req.Lines {
			line, err := tx.InsertLine(ctx, order.ID, in)
			if err != nil {
				return fmt.Errorf("insert order line: %w", err)
			}
			order.Lines = append(order.Lines, line)
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// MarkPending moves a Draft order to Pending.
func (s *Service) MarkPending(ctx context.Context, actor shared.Actor, id int64) (*Order, error) {
	return s.transition(ctx, actor, id, "mark pending", func(ctx context.Context, tx Repository, o *Order) (Status, *string, error) {
		if o.Status != StatusDraft {
			return "", nil, invalidTransition("mark pending", o.Status)
		}
		return StatusPending, nil, nil
	})
}

// GeneratePR assigns a purchase request number and moves the order to PR Generated.
func (s *Service) GeneratePR(ctx context.Context, actor shared.Actor, id int64) (*Order, error) {
	return s.transition(ctx, actor, id, "generate pr", func(ctx context.Context, tx Repository, o *Order) (Status, *string, error) {
		if o.Status != StatusDraft && o.Status != StatusPending {
			return "", nil, invalidTransition("generate a PR for", o.Status)
		}
		pr := PRNumber(o.CustomerID, s.now())
		return StatusPRGenerated, &pr, nil
	})
}

// Submit sends the order. Submitting a Submitted order changes nothing.
func (s *Service) Submit(ctx context.Context, actor shared.Actor, id int64) (*Order, error) {
	return s.transition(ctx, actor, id, "submit", func(ctx context.Context, tx Repository, o *Order) (Status, *string, error) {
		if o.Status == StatusSubmitted {
			return StatusSubmitted, nil, nil
		}
		if !o.Status.CanTransition(StatusSubmitted) {
			return "", nil, invalidTransition("submit", o.Status)
		}
		n, err := tx.CountLines(ctx, o.ID)
		if err != nil {
			return "", nil, fmt.Errorf("count lines: %w", err)
		}
		if n == 0 {
			return "", nil, ErrEmptyOrder
		}
		return StatusSubmitted, nil, nil
	})
}

// Cancel cancels the order from any state. Cancelling twice changes nothing.
func (s *Service) Cancel(ctx context.Context, actor shared.Actor, id int64) (*Order, error) {
	return s.transition(ctx, actor, id, "cancel", func(ctx context.Context, tx Repository, o *Order) (Status, *string, error) {
		return StatusCancelled, nil, nil
	})
}

type decideFunc func(ctx context.Context, tx Repository, o *Order) (Status, *string, error)

// transition locks the order, checks ownership, applies decide and writes the
// result. Returning the current status from decide is a no-op.
func (s *Service) transition(ctx context.Context, actor shared.Actor, id int64, op string, decide decideFunc) (*Order, error) {
	var from, to Status
	var result *Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		o, err := s.lockOwned(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		from = o.Status
		next, pr, err := decide(ctx, tx, o)
		if err != nil {
			return err
		}
		to = next
		if next == o.Status {
			result = o
			return nil
		}
		if err := tx.UpdateStatus(ctx, o.ID, next, pr); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		result, err = tx.Get(ctx, o.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s order: %w", op, err)
	}
	s.observe(from, to)
	return result, nil
}

// AdminOverride sets any status, bypassing the lifecycle, and records an audit
// entry in the same transaction.
func (s *Service) AdminOverride(ctx context.Context, actor shared.Actor, id int64, req OverrideStatusRequest) (*Order, error) {
	if !actor.IsAdmin() {
		return nil, shared.ErrForbidden
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, shared.Invalid("status", fmt.Sprintf("%q is not a known order status", req.Status))
	}

	var from Status
	var result *Order
	ref := uuid.NewString()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		o, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		from = o.Status
		if from == req.Status {
			result = o
			return nil
		}
		if err := tx.UpdateStatus(ctx, o.ID, req.Status, nil); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		err = tx.Audit(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   "order.status_override",
			Entity:   "order",
			EntityID: strconv.FormatInt(o.ID, 10),
			Meta: map[string]any{
				"from":   string(from),
				"to":     string(req.Status),
				"reason": req.Reason,
				"ref":    ref,
			},
		})
		if err != nil {
			return fmt.Errorf("audit override: %w", err)
		}
		result, err = tx.Get(ctx, o.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("override order status: %w", err)
	}
	if from != req.Status {
		s.logger.Warn("order status overridden",
			slog.Int64("order_id", id),
			slog.String("from", string(from)),
			slog.String("to", string(req.Status)),
			slog.String("reason", req.Reason),
			slog.String("actor", actor.Username),
			slog.String("ref", ref),
		)
		s.observe(from, req.Status)
	}
	return result, nil
}

// Delete removes an order and its lines. Admin only.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id int64) error {
	if !actor.IsAdmin() {
		return shared.ErrForbidden
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		o, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(ctx, o.ID); err != nil {
			return err
		}
		return tx.Audit(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   "order.delete",
			Entity:   "order",
			EntityID: strconv.FormatInt(o.ID, 10),
			Meta:     map[string]any{"customer_id": o.CustomerID, "status": string(o.Status)},
		})
	})
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

// Get returns an order the actor may see.
func (s *Service) Get(ctx context.Context, actor shared.Actor, id int64) (*Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !owns(actor, o) {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// List returns a page of orders, newest first. Customers only see their own.
func (s *Service) List(ctx context.Context, actor shared.Actor, f ListFilter) (ListResult, error) {
	if !actor.IsAdmin() {
		f.CustomerID = actor.ID
	}
	if f.Status != "" && !f.Status.Valid() {
		return ListResult{}, shared.Invalid("status", fmt.Sprintf("%q is not a known order status", f.Status))
	}
	out, total, err := s.repo.List(ctx, f)
	if err != nil {
		return ListResult{}, fmt.Errorf("list orders: %w", err)
	}
	return ListResult{Orders: out, Pagination: shared.NewPagination(f.Page, f.PerPage, total)}, nil
}

// Lines returns the lines of an order. Missing or foreign orders yield an
// empty slice.
func (s *Service) Lines(ctx context.Context, actor shared.Actor, orderID int64) ([]Line, error) {
	var owner int64
	if !actor.IsAdmin() {
		owner = actor.ID
	}
	lines, err := s.repo.Lines(ctx, orderID, owner)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	return lines, nil
}

// Detail returns the order with product names, resolved prices and the total.
// Prices are resolved for the order's customer.
func (s *Service) Detail(ctx context.Context, actor shared.Actor, id int64) (*Detail, error) {
	o, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.ProductLines(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("order detail: %w", err)
	}
	items := make([]pricing.LineItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, pricing.LineItem{ProductID: l.ProductID, Qty: l.Qty})
	}
	total, err := s.prices.Total(ctx, o.CustomerID, items)
	if err != nil {
		return nil, fmt.Errorf("order detail: %w", err)
	}

	detail := &Detail{Order: *o, Lines: make([]DetailLine, 0, len(lines)), Total: total.Total}
	for i, l := range lines {
		priced := total.Lines[i]
		detail.Lines = append(detail.Lines, DetailLine{
			ProductLine: l,
			UnitPrice:   priced.UnitPrice,
			PriceSource: priced.Source,
			LineTotal:   priced.LineTotal,
		})
	}
	return detail, nil
}

// CountByStatus returns the number of orders in each status.
func (s *Service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx)
}

// PRNumber formats a purchase request number from the customer id and the UTC
// time of generation.
func PRNumber(customerID int64, at time.Time) string {
	return fmt.Sprintf("PR-%d-%s", customerID, at.UTC().Format("0102150405"))
}

func (s *Service) lockOwned(ctx context.Context, tx Repository, actor shared.Actor, id int64) (*Order, error) {
	o, err := tx.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	if !owns(actor, o) {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *Service) observe(from, to Status) {
	if s.observer == nil || from == to {
		return
	}
	s.observer.ObserveTransition(string(from), string(to))
}

func owns(actor shared.Actor, o *Order) bool {
	return actor.IsAdmin() || o.CustomerID == actor.ID
}

func invalidTransition(op string, from Status) error {
	return fmt.Errorf("%w: cannot %s an order in status %q", ErrInvalidStatus, op, from)
}
