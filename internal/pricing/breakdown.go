package pricing

import "github.com/shopspring/decimal"

// Premium line item types emitted by the calculator.  Adjustment lines use
// the adjustment's own type.
const (
	PremiumFloorRise       = "floor_rise"
	PremiumView            = "view"
	PremiumViewCombination = "view_combination"
)

// PremiumLine is one premium in a breakdown.  Percentage is nil for fixed
// amounts.  Amount is always non-negative; discount lines are subtracted
// when totalling.
type PremiumLine struct {
	Type        string           `json:"type"`
	Amount      decimal.Decimal  `json:"amount"`
	Percentage  *decimal.Decimal `json:"percentage"`
	Description string           `json:"description"`
}

// ChargeLine is one additional charge after any override was applied.
type ChargeLine struct {
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Required    bool            `json:"required"`
	Description string          `json:"description,omitempty"`
}

// TaxLine is a named additional tax.
type TaxLine struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Taxes groups the statutory taxes and any additional named taxes.
type Taxes struct {
	GST             decimal.Decimal `json:"gst"`
	StampDuty       decimal.Decimal `json:"stampDuty"`
	Registration    decimal.Decimal `json:"registration"`
	AdditionalTaxes []TaxLine       `json:"additionalTaxes,omitempty"`
	Total           decimal.Decimal `json:"total"`
}

// Breakdown is the itemised price of a unit.  It is derived on demand and
// never stored.
//
//	Subtotal   = BasePrice + PremiumTotal + AdditionalChargesTotal
//	TotalPrice = Subtotal + Taxes.Total
type Breakdown struct {
	BasePrice              decimal.Decimal `json:"basePrice"`
	Premiums               []PremiumLine   `json:"premiums"`
	PremiumTotal           decimal.Decimal `json:"premiumTotal"`
	AdditionalCharges      []ChargeLine    `json:"additionalCharges"`
	AdditionalChargesTotal decimal.Decimal `json:"additionalChargesTotal"`
	Subtotal               decimal.Decimal `json:"subtotal"`
	Taxes                  Taxes           `json:"taxes"`
	TotalPrice             decimal.Decimal `json:"totalPrice"`
}
