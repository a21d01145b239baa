package catalog

import "github.com/shopspring/decimal"

// UpsertProductRequest creates a product or replaces the one with the same code.
type UpsertProductRequest struct {
	Code         string          `json:"code" validate:"required,max=64"`
	Name         string          `json:"name" validate:"required,max=200"`
	Section      Section         `json:"section" validate:"required"`
	Analyser     Analyser        `json:"analyser" validate:"required"`
	KitSize      string          `json:"kit_size" validate:"max=100"`
	DefaultPrice decimal.Decimal `json:"default_price_usd"`
}

// UpsertResult reports the stored product and whether it was newly inserted.
type UpsertResult struct {
	Product Product `json:"product"`
	Created bool    `json:"created"`
}
