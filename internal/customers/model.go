package customers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Type classifies the commercial relationship with a customer.
type Type string

const (
	TypeDirect Type = "Direct"
	TypeGPPRR  Type = "GPPRR"
	TypeTender Type = "Tender"
)

// Types lists every customer type.
var Types = []Type{TypeDirect, TypeGPPRR, TypeTender}

// Valid reports whether t is a known customer type.
func (t Type) Valid() bool {
	return t == TypeDirect || t == TypeGPPRR || t == TypeTender
}

const dateLayout = "2006-01-02"

// Date is a calendar date without time of day, encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(dateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Customer is an ordering account. The admin account lives in the same table.
type Customer struct {
	ID                 int64           `json:"id"`
	Username           string          `json:"username"`
	PasswordHash       string          `json:"-"`
	Name               string          `json:"name"`
	Type               Type            `json:"type"`
	Phone              *string         `json:"phone,omitempty"`
	Email              *string         `json:"email,omitempty"`
	Location           *string         `json:"location,omitempty"`
	ContractEndDate    *Date           `json:"contract_end_date,omitempty"`
	MarketSharePercent decimal.Decimal `json:"market_share_percent"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// DisplayName is the name shown in listings, falling back to the username.
func (c Customer) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Username
}
