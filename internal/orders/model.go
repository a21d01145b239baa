package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/labportal/reagent-portal/internal/pricing"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusDraft       Status = "Draft"
	StatusPending     Status = "Pending"
	StatusPRGenerated Status = "PR Generated"
	StatusSubmitted   Status = "Submitted"
	StatusCancelled   Status = "Cancelled"
)

// Statuses lists every order status in lifecycle order.
var Statuses = []Status{StatusDraft, StatusPending, StatusPRGenerated, StatusSubmitted, StatusCancelled}

// transitions holds the customer-facing lifecycle. Admin overrides bypass it.
var transitions = map[Status][]Status{
	StatusDraft:       {StatusPending, StatusPRGenerated, StatusSubmitted, StatusCancelled},
	StatusPending:     {StatusPRGenerated, StatusSubmitted, StatusCancelled},
	StatusPRGenerated: {StatusSubmitted, StatusCancelled},
	StatusSubmitted:   {StatusCancelled},
	StatusCancelled:   nil,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is a customer's purchase request.
type Order struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	Status     Status    `json:"status"`
	PRNumber   *string   `json:"pr_number,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Lines      []Line    `json:"lines,omitempty"`
}

// Line is one product and quantity on an order.
type Line struct {
	ID        int64 `json:"id"`
	OrderID   int64 `json:"order_id"`
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

// ProductLine is a line joined with its product.
type ProductLine struct {
	Line
	ProductCode string `json:"product_code"`
	ProductName string `json:"product_name"`
}

// DetailLine is a product line with its resolved price.
type DetailLine struct {
	ProductLine
	UnitPrice   decimal.Decimal `json:"unit_price_usd"`
	PriceSource pricing.Source  `json:"price_source"`
	LineTotal   decimal.Decimal `json:"line_total_usd"`
}

// Detail is an order with priced lines and its total.
type Detail struct {
	Order Order           `json:"order"`
	Lines []DetailLine    `json:"lines"`
	Total decimal.Decimal `json:"total_usd"`
}

// ListFilter narrows order listings. Zero values match everything.
type ListFilter struct {
	CustomerID int64
	Status     Status
	Page       int
	PerPage    int
}
