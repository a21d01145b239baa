package customers

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/labportal/reagent-portal/internal/shared"
)

// PasswordHasher turns a plaintext password into a storable hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Service implements customer account management.
type Service struct {
	repo     Repository
	hasher   PasswordHasher
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(repo Repository, hasher PasswordHasher) *Service {
	return &Service{repo: repo, hasher: hasher, validate: shared.NewValidator()}
}

var hundred = decimal.NewFromInt(100)

// Create registers a customer with a hashed password.
func (s *Service) Create(ctx context.Context, actor shared.Actor, req CreateCustomerRequest) (Customer, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Name = strings.TrimSpace(req.Name)
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return Customer{}, err
	}
	if strings.EqualFold(req.Username, shared.AdminUsername) {
		return Customer{}, ErrReservedUsername
	}
	if req.Type == "" {
		req.Type = TypeDirect
	}
	if err := checkType(req.Type); err != nil {
		return Customer{}, err
	}
	if err := checkMarketShare(req.MarketSharePercent); err != nil {
		return Customer{}, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return Customer{}, fmt.Errorf("hash password: %w", err)
	}

	var created Customer
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		c, err := tx.Create(ctx, Customer{
			Username:           req.Username,
			PasswordHash:       hash,
			Name:               req.Name,
			Type:               req.Type,
			Phone:              trimmed(req.Phone),
			Email:              trimmed(req.Email),
			Location:           trimmed(req.Location),
			ContractEndDate:    req.ContractEndDate,
			MarketSharePercent: req.MarketSharePercent.Round(2),
		})
		if err != nil {
			return fmt.Errorf("create customer: %w", err)
		}
		created = c
		return audit(ctx, tx, actor, "customer.create", c.ID, map[string]any{
			"username": c.Username,
			"type":     string(c.Type),
		})
	})
	if err != nil {
		return Customer{}, err
	}
	return created, nil
}

// Update writes only the fields set on req. With nothing set it returns the
// current record unchanged.
func (s *Service) Update(ctx context.Context, actor shared.Actor, id int64, req UpdateCustomerRequest) (*Customer, error) {
	var result *Customer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		updates, err := s.changes(current, req)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			result = current
			return nil
		}
		if err := tx.Update(ctx, id, updates); err != nil {
			return fmt.Errorf("update customer: %w", err)
		}
		fields := make([]string, 0, len(updates))
		for k := range updates {
			fields = append(fields, k)
		}
		sort.Strings(fields)
		if err := audit(ctx, tx, actor, "customer.update", id, map[string]any{"fields": fields}); err != nil {
			return err
		}
		result, err = tx.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) changes(current *Customer, req UpdateCustomerRequest) (map[string]any, error) {
	for _, err := range []error{
		notNull("username", req.Username),
		notNull("name", req.Name),
		notNull("type", req.Type),
		notNull("market_share_percent", req.MarketSharePercent),
	} {
		if err != nil {
			return nil, err
		}
	}
	updates := map[string]any{}

	if username, ok := req.Username.Get(); ok {
		username = strings.TrimSpace(username)
		if username == "" {
			return nil, shared.Invalid("username", "is required")
		}
		if len(username) > 64 {
			return nil, shared.Invalid("username", "must be at most 64")
		}
		isAdmin := strings.EqualFold(current.Username, shared.AdminUsername)
		if username != current.Username && (isAdmin || strings.EqualFold(username, shared.AdminUsername)) {
			return nil, ErrReservedUsername
		}
		updates["username"] = username
	}
	if name, ok := req.Name.Get(); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, shared.Invalid("name", "is required")
		}
		updates["name"] = name
	}
	if t, ok := req.Type.Get(); ok {
		if err := checkType(t); err != nil {
			return nil, err
		}
		updates["type"] = string(t)
	}
	if phone, ok := req.Phone.Get(); ok {
		updates["phone"] = textArg(trimmed(phone))
	}
	if email, ok := req.Email.Get(); ok {
		email = trimmed(email)
		if email != nil {
			if err := s.validate.Var(*email, "email"); err != nil {
				return nil, shared.Invalid("email", "must be a valid email")
			}
		}
		updates["email"] = textArg(email)
	}
	if location, ok := req.Location.Get(); ok {
		updates["location"] = textArg(trimmed(location))
	}
	if end, ok := req.ContractEndDate.Get(); ok {
		updates["contract_end_date"] = dateArg(end)
	}
	if share, ok := req.MarketSharePercent.Get(); ok {
		if err := checkMarketShare(share); err != nil {
			return nil, err
		}
		updates["market_share_percent"] = share.Round(2)
	}
	return updates, nil
}

// ResetPassword replaces a customer's password.
func (s *Service) ResetPassword(ctx context.Context, actor shared.Actor, id int64, req ResetPasswordRequest) error {
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.SetPasswordHash(ctx, id, hash); err != nil {
			return err
		}
		return audit(ctx, tx, actor, "customer.password_reset", id, nil)
	})
}

// Get returns a customer by id.
func (s *Service) Get(ctx context.Context, id int64) (*Customer, error) {
	return s.repo.Get(ctx, id)
}

// List returns customers ordered by display name.
func (s *Service) List(ctx context.Context, req ListCustomersRequest) ([]Customer, error) {
	out, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return out, nil
}

// Count returns the number of customer accounts, excluding admin.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func audit(ctx context.Context, tx Repository, actor shared.Actor, action string, id int64, meta map[string]any) error {
	err := tx.Audit(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "customer",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		return fmt.Errorf("audit %s: %w", action, err)
	}
	return nil
}

// notNull rejects an explicit JSON null for a column that cannot be cleared.
func notNull[T any](field string, o shared.Optional[T]) error {
	if o.IsNull() {
		return shared.Invalid(field, "must not be null")
	}
	return nil
}

func checkType(t Type) error {
	if !t.Valid() {
		return shared.Invalid("type", fmt.Sprintf("%q is not a known customer type", t))
	}
	return nil
}

func checkMarketShare(v decimal.Decimal) error {
	if v.IsNegative() || v.GreaterThan(hundred) {
		return shared.Invalid("market_share_percent", "must be between 0 and 100")
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
