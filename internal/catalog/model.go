package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Section is the lab discipline a product belongs to.
type Section string

const (
	SectionChemistry  Section = "Chemistry"
	SectionImmunology Section = "Immunology"
	SectionHematology Section = "Hematology"
)

// Sections lists every section in display order.
var Sections = []Section{SectionChemistry, SectionImmunology, SectionHematology}

// Valid reports whether s is a known section.
func (s Section) Valid() bool {
	for _, known := range Sections {
		if s == known {
			return true
		}
	}
	return false
}

// Analyser is the instrument model a product runs on.
type Analyser string

const (
	AnalyserAlinityC   Analyser = "Alinity c"
	AnalyserAlinityI   Analyser = "Alinity i"
	AnalyserAlinityHQ  Analyser = "Alinity HQ"
	AnalyserAlinityHS  Analyser = "Alinity HS"
	AnalyserArchitectC Analyser = "Architect c"
	AnalyserArchitectI Analyser = "Architect i"
	AnalyserRuby       Analyser = "Ruby"
	AnalyserEmerald    Analyser = "Emerald"
)

// Analysers lists every analyser in display order.
var Analysers = []Analyser{
	AnalyserAlinityC, AnalyserAlinityI, AnalyserAlinityHQ, AnalyserAlinityHS,
	AnalyserArchitectC, AnalyserArchitectI, AnalyserRuby, AnalyserEmerald,
}

// Valid reports whether a is a known analyser.
func (a Analyser) Valid() bool {
	for _, known := range Analysers {
		if a == known {
			return true
		}
	}
	return false
}

// Product is a catalog entry keyed by its unique code.
type Product struct {
	ID           int64           `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Section      Section         `json:"section"`
	Analyser     Analyser        `json:"analyser"`
	KitSize      string          `json:"kit_size"`
	DefaultPrice decimal.Decimal `json:"default_price_usd"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// PricedProduct is a product with the price a specific customer pays.
type PricedProduct struct {
	Product
	Price       decimal.Decimal `json:"price_usd"`
	PriceSource string          `json:"price_source"`
}

// Filter narrows catalog listings. Empty fields do not filter.
type Filter struct {
	Section  Section  `json:"section,omitempty"`
	Analyser Analyser `json:"analyser,omitempty"`
	KitSize  string   `json:"kit_size,omitempty"`
	Search   string   `json:"search,omitempty"`
}
