package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source tells where a resolved price came from.
type Source string

const (
	SourceFixed   Source = "fixed"
	SourceDefault Source = "default"
	SourceNone    Source = "none"
)

// Quote is the price a customer pays for one unit of a product.
type Quote struct {
	ProductID int64           `json:"product_id"`
	Amount    decimal.Decimal `json:"amount_usd"`
	Source    Source          `json:"source"`
}

// FixedPrice is a per-customer override of a product's default price.
type FixedPrice struct {
	CustomerID  int64           `json:"customer_id"`
	ProductID   int64           `json:"product_id"`
	ProductCode string          `json:"product_code"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price_usd"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// MaxLineQty caps the quantity on a single order or quote line.
const MaxLineQty = 100000

// LineItem is a product and quantity to be priced.
type LineItem struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

// PricedLine is a line item with its unit price and line total.
type PricedLine struct {
	LineItem
	UnitPrice decimal.Decimal `json:"unit_price_usd"`
	Source    Source          `json:"source"`
	LineTotal decimal.Decimal `json:"line_total_usd"`
}

// Total is the priced form of a cart or order.
type Total struct {
	Lines []PricedLine    `json:"lines"`
	Total decimal.Decimal `json:"total_usd"`
}

// resolve applies the lookup order: fixed price, then default price, then zero.
func resolve(productID int64, fixed, def decimal.NullDecimal) Quote {
	switch {
	case fixed.Valid:
		return Quote{ProductID: productID, Amount: fixed.Decimal, Source: SourceFixed}
	case def.Valid:
		return Quote{ProductID: productID, Amount: def.Decimal, Source: SourceDefault}
	default:
		return Quote{ProductID: productID, Amount: decimal.Zero, Source: SourceNone}
	}
}
