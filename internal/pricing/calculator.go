package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/realty-inventory/internal/apperror"
	"github.com/iliyamo/realty-inventory/internal/model"
)

// ComputeBreakdown prices unit against its tower, project and the merged
// rules.  It is deterministic and performs no I/O.
//
// A tower without a floor-rise configuration, an unknown strategy tag or a
// negative project rate is a ConfigurationError.  A negative base price or
// area is a ValidationError.
func ComputeBreakdown(unit *model.Unit, tower *model.Tower, project *model.Project, rules Rules) (Breakdown, error) {
	if tower.Premiums.FloorRise == nil {
		return Breakdown{}, apperror.Configuration("tower", tower.ID, "premiums.floorRise is missing")
	}

	basis := model.DefaultPriceBasis
	if rules.PriceBasedOn != nil {
		basis = *rules.PriceBasedOn
	}
	area, ok := unit.Area(basis)
	if !ok {
		return Breakdown{}, apperror.Configuration("rules", nil, "unknown priceBasedOn %q", basis)
	}
	if area.IsNegative() {
		return Breakdown{}, apperror.Validation(string(basis), "must not be negative, got %s", area)
	}
	if unit.BasePrice.IsNegative() {
		return Breakdown{}, apperror.Validation("basePrice", "must not be negative, got %s", unit.BasePrice)
	}

	var b Breakdown
	b.BasePrice = money(unit.BasePrice.Mul(area))

	floor, err := floorRisePremium(unit, tower, rules.FloorRise, area, b.BasePrice)
	if err != nil {
		return Breakdown{}, err
	}
	b.Premiums = append(b.Premiums, floor)
	b.PremiumTotal = floor.Amount

	views, err := viewPremiums(unit, tower, rules.ViewCombinations, b.BasePrice)
	if err != nil {
		return Breakdown{}, err
	}
	for _, v := range views {
		b.Premiums = append(b.Premiums, v)
		b.PremiumTotal = b.PremiumTotal.Add(v.Amount)
	}

	for _, adj := range unit.PremiumAdjustments {
		line, err := adjustmentPremium(adj, rules.PremiumCalculations, b.BasePrice)
		if err != nil {
			return Breakdown{}, err
		}
		b.Premiums = append(b.Premiums, line)
		if adj.Type == model.AdjustmentDiscount {
			b.PremiumTotal = b.PremiumTotal.Sub(line.Amount)
		} else {
			b.PremiumTotal = b.PremiumTotal.Add(line.Amount)
		}
	}

	b.AdditionalCharges = make([]ChargeLine, 0, len(unit.AdditionalCharges))
	b.AdditionalChargesTotal = decimal.Zero
	for _, ch := range unit.AdditionalCharges {
		line, err := additionalCharge(ch, rules.ChargeOverrides, b.BasePrice)
		if err != nil {
			return Breakdown{}, err
		}
		b.AdditionalCharges = append(b.AdditionalCharges, line)
		b.AdditionalChargesTotal = b.AdditionalChargesTotal.Add(line.Amount)
	}

	b.Subtotal = b.BasePrice.Add(b.PremiumTotal).Add(b.AdditionalChargesTotal)

	taxes, err := computeTaxes(project, rules, b.Subtotal)
	if err != nil {
		return Breakdown{}, err
	}
	b.Taxes = taxes
	b.TotalPrice = b.Subtotal.Add(b.Taxes.Total)
	return b, nil
}

func floorRisePremium(unit *model.Unit, tower *model.Tower, rule *FloorRiseRule, area, base decimal.Decimal) (PremiumLine, error) {
	fr := tower.Premiums.FloorRise
	if unit.Floor < fr.FloorStart {
		return PremiumLine{
			Type:        PremiumFloorRise,
			Amount:      decimal.Zero,
			Description: "no floor rise premium applicable",
		}, nil
	}
	levels := unit.Floor - fr.FloorStart + 1

	strategy := ProgressionLinear
	var params FloorRiseRule
	if rule != nil {
		params = *rule
		if rule.Strategy != "" {
			strategy = rule.Strategy
		}
	}
	progress, ok := progressions[strategy]
	if !ok {
		return PremiumLine{}, apperror.Configuration("rules", nil, "unknown floor rise strategy %q", strategy)
	}
	rate, err := progress(fr.Value, levels, params)
	if err != nil {
		return PremiumLine{}, apperror.Configuration("rules", nil, "%v", err)
	}

	desc := fmt.Sprintf("floor rise for floor %d (%d floors from %d, %s)", unit.Floor, levels, fr.FloorStart, strategy)
	switch fr.Type {
	case model.FloorRiseFixed:
		return PremiumLine{Type: PremiumFloorRise, Amount: money(rate.Mul(area)), Description: desc}, nil
	case model.FloorRisePercentage:
		pct := rate
		return PremiumLine{Type: PremiumFloorRise, Amount: money(percentOf(base, rate)), Percentage: &pct, Description: desc}, nil
	}
	return PremiumLine{}, apperror.Configuration("tower", tower.ID, "unknown floorRise.type %q", fr.Type)
}

func viewPremiums(unit *model.Unit, tower *model.Tower, combos []ViewCombination, base decimal.Decimal) ([]PremiumLine, error) {
	var lines []PremiumLine
	seen := make(map[string]struct{}, len(unit.Views))
	for _, view := range unit.Views {
		if _, dup := seen[view]; dup {
			continue
		}
		seen[view] = struct{}{}
		pct, ok := tower.ViewPercentage(view)
		if !ok || !pct.IsPositive() {
			continue
		}
		p := pct
		lines = append(lines, PremiumLine{
			Type:        PremiumView,
			Amount:      money(percentOf(base, pct)),
			Percentage:  &p,
			Description: "view premium: " + view,
		})
	}

	for _, combo := range combos {
		if len(combo.Views) == 0 || !holdsAll(unit, combo.Views) {
			continue
		}
		amount, pct, err := amountFor(combo.Type, combo.Value, base)
		if err != nil {
			return nil, apperror.Configuration("rules", nil, "view combination %v: %v", combo.Views, err)
		}
		desc := combo.Description
		if desc == "" {
			desc = fmt.Sprintf("view combination premium: %v", combo.Views)
		}
		lines = append(lines, PremiumLine{
			Type:        PremiumViewCombination,
			Amount:      money(amount),
			Percentage:  pct,
			Description: desc,
		})
	}
	return lines, nil
}

func holdsAll(unit *model.Unit, views []string) bool {
	for _, v := range views {
		if !unit.HasView(v) {
			return false
		}
	}
	return true
}

func adjustmentPremium(adj model.PremiumAdjustment, calcs map[string]AmountRule, base decimal.Decimal) (PremiumLine, error) {
	line := PremiumLine{Type: adj.Type, Description: adj.Description}
	if calc, ok := calcs[adj.Type]; ok {
		amount, pct, err := amountFor(calc.Type, calc.Value, base)
		if err != nil {
			return PremiumLine{}, apperror.Configuration("rules", nil, "premium calculation for %q: %v", adj.Type, err)
		}
		line.Amount, line.Percentage = money(amount), pct
		return line, nil
	}
	if adj.Percentage.IsPositive() {
		pct := adj.Percentage
		line.Amount, line.Percentage = money(percentOf(base, pct)), &pct
		return line, nil
	}
	line.Amount = money(adj.Amount)
	return line, nil
}

func additionalCharge(ch model.AdditionalCharge, overrides map[string]AmountRule, base decimal.Decimal) (ChargeLine, error) {
	line := ChargeLine{Name: ch.Name, Amount: money(ch.Amount), Required: ch.Required, Description: ch.Description}
	ov, ok := overrides[ch.Name]
	if !ok {
		return line, nil
	}
	if ov.Type == AmountWaive && ch.Required {
		return ChargeLine{}, apperror.Configuration("rules", nil, "required charge %q cannot be waived", ch.Name)
	}
	amount, _, err := amountFor(ov.Type, ov.Value, base)
	if err != nil {
		return ChargeLine{}, apperror.Configuration("rules", nil, "charge override for %q: %v", ch.Name, err)
	}
	line.Amount = money(amount)
	return line, nil
}

func computeTaxes(project *model.Project, rules Rules, subtotal decimal.Decimal) (Taxes, error) {
	gstRate, stampRate, regRate := project.Rates()
	for _, r := range []struct {
		name string
		rate decimal.Decimal
	}{{"gstRate", gstRate}, {"stampDutyRate", stampRate}, {"registrationRate", regRate}} {
		if r.rate.IsNegative() {
			return Taxes{}, apperror.Configuration("project", project.ID, "%s must not be negative, got %s", r.name, r.rate)
		}
	}

	var t Taxes
	var err error
	if t.GST, err = statutoryTax("gst", rules.GST, gstRate, subtotal); err != nil {
		return Taxes{}, err
	}
	if t.StampDuty, err = statutoryTax("stampDuty", rules.StampDuty, stampRate, subtotal); err != nil {
		return Taxes{}, err
	}
	if t.Registration, err = statutoryTax("registration", rules.Registration, regRate, subtotal); err != nil {
		return Taxes{}, err
	}
	t.Total = t.GST.Add(t.StampDuty).Add(t.Registration)

	for _, extra := range rules.AdditionalTaxes {
		if extra.Name == "" {
			return Taxes{}, apperror.Configuration("rules", nil, "additional tax without a name")
		}
		if extra.Type == AmountWaive {
			return Taxes{}, apperror.Configuration("rules", nil, "additional tax %q: waive is not a tax type", extra.Name)
		}
		amount, _, err := amountFor(extra.Type, extra.Value, subtotal)
		if err != nil {
			return Taxes{}, apperror.Configuration("rules", nil, "additional tax %q: %v", extra.Name, err)
		}
		line := TaxLine{Name: extra.Name, Amount: money(amount)}
		t.AdditionalTaxes = append(t.AdditionalTaxes, line)
		t.Total = t.Total.Add(line.Amount)
	}
	return t, nil
}

func statutoryTax(name string, rule *TaxRule, rate, subtotal decimal.Decimal) (decimal.Decimal, error) {
	amount, err := computeTax(rule, rate, subtotal)
	if err != nil {
		return decimal.Zero, apperror.Configuration("rules", nil, "%s: %v", name, err)
	}
	return money(amount), nil
}
