package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/labportal/reagent-portal/internal/shared"
)

// Service implements catalog management.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: shared.NewValidator()}
}

// Upsert inserts a product or, when the code already exists, updates it in
// place. The change is audited under actor in the same transaction.
func (s *Service) Upsert(ctx context.Context, actor shared.Actor, req UpsertProductRequest) (UpsertResult, error) {
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	req.KitSize = strings.TrimSpace(req.KitSize)
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return UpsertResult{}, err
	}
	if !req.Section.Valid() {
		return UpsertResult{}, shared.Invalid("section", fmt.Sprintf("%q is not a known section", req.Section))
	}
	if !req.Analyser.Valid() {
		return UpsertResult{}, shared.Invalid("analyser", fmt.Sprintf("%q is not a known analyser", req.Analyser))
	}
	if req.DefaultPrice.IsNegative() {
		return UpsertResult{}, shared.Invalid("default_price_usd", "must not be negative")
	}

	var result UpsertResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		product, created, err := tx.Upsert(ctx, Product{
			Code:         req.Code,
			Name:         req.Name,
			Section:      req.Section,
			Analyser:     req.Analyser,
			KitSize:      req.KitSize,
			DefaultPrice: req.DefaultPrice.Round(2),
		})
		if err != nil {
			return fmt.Errorf("upsert product: %w", err)
		}
		action := "product.update"
		if created {
			action = "product.create"
		}
		err = tx.Audit(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   action,
			Entity:   "product",
			EntityID: strconv.FormatInt(product.ID, 10),
			Meta: map[string]any{
				"code":              product.Code,
				"default_price_usd": product.DefaultPrice.StringFixed(2),
			},
		})
		if err != nil {
			return fmt.Errorf("audit product: %w", err)
		}
		result = UpsertResult{Product: product, Created: created}
		return nil
	})
	if err != nil {
		return UpsertResult{}, err
	}
	return result, nil
}

// Get returns a product by id.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.repo.Get(ctx, id)
}

// GetByCode returns a product by its code.
func (s *Service) GetByCode(ctx context.Context, code string) (*Product, error) {
	return s.repo.GetByCode(ctx, strings.TrimSpace(code))
}

// List returns products matching f, ordered by name.
func (s *Service) List(ctx context.Context, f Filter) ([]Product, error) {
	if err := CheckFilter(f); err != nil {
		return nil, err
	}
	products, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// DeleteByCode removes a product. Products referenced by order lines are kept.
func (s *Service) DeleteByCode(ctx context.Context, actor shared.Actor, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return shared.Invalid("code", "is required")
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		p, err := tx.GetByCode(ctx, code)
		if err != nil {
			return err
		}
		if err := tx.DeleteByCode(ctx, code); err != nil {
			return err
		}
		return tx.Audit(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   "product.delete",
			Entity:   "product",
			EntityID: strconv.FormatInt(p.ID, 10),
			Meta:     map[string]any{"code": p.Code, "name": p.Name},
		})
	})
}

// Count returns the catalog size.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// CheckFilter rejects unknown section or analyser filter values.
func CheckFilter(f Filter) error {
	if f.Section != "" && !f.Section.Valid() {
		return shared.Invalid("section", fmt.Sprintf("%q is not a known section", f.Section))
	}
	if f.Analyser != "" && !f.Analyser.Valid() {
		return shared.Invalid("analyser", fmt.Sprintf("%q is not a known analyser", f.Analyser))
	}
	return nil
}
