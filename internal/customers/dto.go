package customers

import (
	"github.com/shopspring/decimal"

	"github.com/labportal/reagent-portal/internal/shared"
)

// CreateCustomerRequest registers a new ordering account.
type CreateCustomerRequest struct {
	Username           string          `json:"username" validate:"required,max=64"`
	Password           string          `json:"password" validate:"required,min=8,max=72"`
	Name               string          `json:"name" validate:"required,max=200"`
	Type               Type            `json:"type"`
	Phone              *string         `json:"phone,omitempty" validate:"omitempty,max=50"`
	Email              *string         `json:"email,omitempty" validate:"omitempty,email"`
	Location           *string         `json:"location,omitempty" validate:"omitempty,max=200"`
	ContractEndDate    *Date           `json:"contract_end_date,omitempty"`
	MarketSharePercent decimal.Decimal `json:"market_share_percent"`
}

// UpdateCustomerRequest changes only the fields that are set. Nullable columns
// take an Optional pointer so they can be cleared.
type UpdateCustomerRequest struct {
	Username           shared.Optional[string]          `json:"username"`
	Name               shared.Optional[string]          `json:"name"`
	Type               shared.Optional[Type]            `json:"type"`
	Phone              shared.Optional[*string]         `json:"phone"`
	Email              shared.Optional[*string]         `json:"email"`
	Location           shared.Optional[*string]         `json:"location"`
	ContractEndDate    shared.Optional[*Date]           `json:"contract_end_date"`
	MarketSharePercent shared.Optional[decimal.Decimal] `json:"market_share_percent"`
}

// ResetPasswordRequest sets a new password for a customer.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// ListCustomersRequest filters customer listings.
type ListCustomersRequest struct {
	Search       string `json:"search,omitempty"`
	IncludeAdmin bool   `json:"include_admin,omitempty"`
}
