package pricing

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// percentOf returns base × pct / 100.
func percentOf(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(hundred)
}

// money rounds a line amount to two decimal places.
func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// progressionFunc returns the floor-rise rate for a unit levels above the
// start floor (levels >= 1).
type progressionFunc func(value decimal.Decimal, levels int, rule FloorRiseRule) (decimal.Decimal, error)

var progressions = map[Progression]progressionFunc{
	ProgressionLinear:      linearRate,
	ProgressionExponential: exponentialRate,
	ProgressionTiered:      tieredRate,
}

func linearRate(value decimal.Decimal, levels int, _ FloorRiseRule) (decimal.Decimal, error) {
	return value.Mul(decimal.NewFromInt(int64(levels))), nil
}

func exponentialRate(value decimal.Decimal, levels int, rule FloorRiseRule) (decimal.Decimal, error) {
	if !rule.Factor.IsPositive() {
		return decimal.Zero, fmt.Errorf("exponential floor rise needs a positive factor, got %s", rule.Factor)
	}
	rate := value
	for i := 1; i < levels; i++ {
		rate = rate.Mul(rule.Factor)
	}
	return rate, nil
}

// tieredRate sums a per-level rate over levels 1..levels.  Each level uses
// the value of the last tier whose FromLevel is at or below it, or the
// tower's value when no tier covers it.
func tieredRate(value decimal.Decimal, levels int, rule FloorRiseRule) (decimal.Decimal, error) {
	if len(rule.Tiers) == 0 {
		return decimal.Zero, fmt.Errorf("tiered floor rise needs at least one tier")
	}
	tiers := slices.Clone(rule.Tiers)
	slices.SortStableFunc(tiers, func(a, b FloorRiseTier) int { return a.FromLevel - b.FromLevel })

	rate := decimal.Zero
	for level := 1; level <= levels; level++ {
		step := value
		for _, t := range tiers {
			if t.FromLevel > level {
				break
			}
			step = t.Value
		}
		rate = rate.Add(step)
	}
	return rate, nil
}

// amountFor turns an AmountRule-like pair into an amount relative to base.
// The returned percentage is nil for fixed and waived amounts.
func amountFor(t AmountType, value, base decimal.Decimal) (decimal.Decimal, *decimal.Decimal, error) {
	switch t {
	case AmountFixed:
		return value, nil, nil
	case AmountPercentage:
		pct := value
		return percentOf(base, value), &pct, nil
	case AmountWaive:
		return decimal.Zero, nil, nil
	}
	return decimal.Zero, nil, fmt.Errorf("unknown amount type %q", t)
}

// taxFunc computes one tax from the subtotal.  defaultRate is the project
// rate for the tax.
type taxFunc func(rule *TaxRule, defaultRate, subtotal decimal.Decimal) (decimal.Decimal, error)

var taxCalculators = map[TaxMethod]taxFunc{
	TaxRate:   rateTax,
	TaxFixed:  fixedTax,
	TaxTiered: tieredTax,
}

func rateTax(rule *TaxRule, _, subtotal decimal.Decimal) (decimal.Decimal, error) {
	return percentOf(subtotal, rule.Rate), nil
}

func fixedTax(rule *TaxRule, _, _ decimal.Decimal) (decimal.Decimal, error) {
	return rule.Amount, nil
}

// tieredTax sorts tiers by ascending threshold, null thresholds last, and
// applies the first tier whose threshold is null or at least the subtotal.
// When every threshold is below the subtotal the project rate applies.
func tieredTax(rule *TaxRule, defaultRate, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if len(rule.Tiers) == 0 {
		return decimal.Zero, fmt.Errorf("tiered tax needs at least one tier")
	}
	tiers := slices.Clone(rule.Tiers)
	slices.SortStableFunc(tiers, func(a, b TaxTier) int {
		switch {
		case !a.Threshold.Valid && !b.Threshold.Valid:
			return 0
		case !a.Threshold.Valid:
			return 1
		case !b.Threshold.Valid:
			return -1
		}
		return a.Threshold.Decimal.Cmp(b.Threshold.Decimal)
	})
	for _, t := range tiers {
		if !t.Threshold.Valid || t.Threshold.Decimal.GreaterThanOrEqual(subtotal) {
			return percentOf(subtotal, t.Rate), nil
		}
	}
	return percentOf(subtotal, defaultRate), nil
}

// computeTax applies rule when present and the project rate otherwise.
func computeTax(rule *TaxRule, defaultRate, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if rule == nil {
		return percentOf(subtotal, defaultRate), nil
	}
	method := rule.Type
	if method == "" {
		method = TaxRate
	}
	calc, ok := taxCalculators[method]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown tax type %q", rule.Type)
	}
	return calc(rule, defaultRate, subtotal)
}
