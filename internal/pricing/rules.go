// Package pricing resolves layered pricing rules and computes itemised unit
// prices.  Everything in this package is pure: callers fetch the rule layers
// and entities, and the calculator never performs I/O.
package pricing

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/realty-inventory/internal/model"
)

// Progression names a floor-rise rate strategy.
type Progression string

const (
	ProgressionLinear      Progression = "linear"
	ProgressionExponential Progression = "exponential"
	ProgressionTiered      Progression = "tiered"
)

// FloorRiseTier sets the per-level rate from FromLevel upwards, where level 1
// is the tower's floorStart.
type FloorRiseTier struct {
	FromLevel int             `json:"fromLevel"`
	Value     decimal.Decimal `json:"value"`
}

// FloorRiseRule picks the progression used to turn the tower's floor-rise
// value into a rate.  Factor is used by exponential, Tiers by tiered.
type FloorRiseRule struct {
	Strategy Progression     `json:"strategy"`
	Factor   decimal.Decimal `json:"factor"`
	Tiers    []FloorRiseTier `json:"tiers,omitempty"`
}

// AmountType selects how a rule value becomes an amount.
type AmountType string

const (
	AmountFixed      AmountType = "fixed"
	AmountPercentage AmountType = "percentage"
	AmountWaive      AmountType = "waive"
)

// ViewCombination adds one premium line when a unit holds every view in Views.
type ViewCombination struct {
	Views       []string        `json:"views"`
	Type        AmountType      `json:"type"`
	Value       decimal.Decimal `json:"value"`
	Description string          `json:"description,omitempty"`
}

// AmountRule recalculates a premium adjustment or a charge.
type AmountRule struct {
	Type  AmountType      `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// TaxMethod selects how a tax is calculated.
type TaxMethod string

const (
	TaxRate   TaxMethod = "rate"
	TaxFixed  TaxMethod = "fixed"
	TaxTiered TaxMethod = "tiered"
)

// TaxTier applies Rate to subtotals up to Threshold.  A null threshold is
// unbounded.
type TaxTier struct {
	Threshold decimal.NullDecimal `json:"threshold"`
	Rate      decimal.Decimal     `json:"rate"`
}

// TaxRule replaces the project rate for one tax.
type TaxRule struct {
	Type   TaxMethod       `json:"type"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
	Tiers  []TaxTier       `json:"tiers,omitempty"`
}

// AdditionalTax is an extra named tax appended to the breakdown.
type AdditionalTax struct {
	Name  string          `json:"name"`
	Type  AmountType      `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// Rules is one layer of pricing configuration, or the merged result of all
// layers.  Every field is an option key: nil means "not set at this layer".
// A non-nil value, including an empty slice or map, replaces the lower
// layer's value wholesale.
type Rules struct {
	PriceBasedOn        *model.AreaField      `json:"priceBasedOn,omitempty"`
	FloorRise           *FloorRiseRule        `json:"floorRise,omitempty"`
	ViewCombinations    []ViewCombination     `json:"viewCombinations,omitempty"`
	PremiumCalculations map[string]AmountRule `json:"premiumCalculations,omitempty"`
	ChargeOverrides     map[string]AmountRule `json:"chargeOverrides,omitempty"`
	GST                 *TaxRule              `json:"gst,omitempty"`
	StampDuty           *TaxRule              `json:"stampDuty,omitempty"`
	Registration        *TaxRule              `json:"registration,omitempty"`
	AdditionalTaxes     []AdditionalTax       `json:"additionalTaxes,omitempty"`
}

// Resolve merges the four rule layers in precedence order: tenant defaults,
// project overrides, unit-type overrides, call-site options.  Any layer may
// be nil.
func Resolve(tenant, project, unitType, call *Rules) Rules {
	var out Rules
	for _, layer := range []*Rules{tenant, project, unitType, call} {
		out.overlay(layer)
	}
	return out
}

func (r *Rules) overlay(l *Rules) {
	if l == nil {
		return
	}
	if l.PriceBasedOn != nil {
		r.PriceBasedOn = l.PriceBasedOn
	}
	if l.FloorRise != nil {
		r.FloorRise = l.FloorRise
	}
	if l.ViewCombinations != nil {
		r.ViewCombinations = l.ViewCombinations
	}
	if l.PremiumCalculations != nil {
		r.PremiumCalculations = l.PremiumCalculations
	}
	if l.ChargeOverrides != nil {
		r.ChargeOverrides = l.ChargeOverrides
	}
	if l.GST != nil {
		r.GST = l.GST
	}
	if l.StampDuty != nil {
		r.StampDuty = l.StampDuty
	}
	if l.Registration != nil {
		r.Registration = l.Registration
	}
	if l.AdditionalTaxes != nil {
		r.AdditionalTaxes = l.AdditionalTaxes
	}
}

// ParseRules decodes a stored rule document.  Empty input and JSON null
// yield a nil layer.
func ParseRules(raw json.RawMessage) (*Rules, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var r Rules
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode pricing rules: %w", err)
	}
	return &r, nil
}

// ActiveUnitTypeRules returns the rule layer of an active unit-type rule and
// nil for a missing or inactive one.
func ActiveUnitTypeRules(rule *model.UnitTypeRule) (*Rules, error) {
	if rule == nil || !rule.Active {
		return nil, nil
	}
	return ParseRules(rule.PricingRules)
}
