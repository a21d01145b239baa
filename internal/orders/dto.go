package orders

import "github.com/labportal/reagent-portal/internal/shared"

// LineInput is a requested order line. The qty cap matches pricing.MaxLineQty.
type LineInput struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
	Qty       int   `json:"qty" validate:"gt=0,lte=100000"`
}

// CreateOrderRequest places a new order.
type CreateOrderRequest struct {
	Lines []LineInput `json:"lines" validate:"required,min=1,dive"`
	// IdempotencyKey comes from the request header, not the body.
	IdempotencyKey string `json:"-" validate:"max=200"`
}

// OverrideStatusRequest is an admin status change outside the lifecycle.
type OverrideStatusRequest struct {
	Status Status `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"required,max=500"`
}

// ListResult is one page of orders.
type ListResult struct {
	Orders     []Order           `json:"orders"`
	Pagination shared.Pagination `json:"pagination"`
}
