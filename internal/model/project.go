package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Default tax rates, in percent, applied when a project leaves them unset.
var (
	DefaultGSTRate          = decimal.NewFromInt(5)
	DefaultStampDutyRate    = decimal.NewFromInt(5)
	DefaultRegistrationRate = decimal.NewFromInt(1)
)

// Project is a real-estate development owned by a tenant.  Rates are
// percentages; a NULL column falls back to the defaults above.
// CustomPricingModel holds partial pricing rule overrides as raw JSON and
// is decoded by the pricing package.
type Project struct {
	ID                 uint64              `json:"id"`
	TenantID           uint64              `json:"tenantId"`
	Name               string              `json:"name"`
	GSTRate            decimal.NullDecimal `json:"gstRate"`
	StampDutyRate      decimal.NullDecimal `json:"stampDutyRate"`
	RegistrationRate   decimal.NullDecimal `json:"registrationRate"`
	CustomPricingModel json.RawMessage     `json:"customPricingModel,omitempty"`
}

// Rates returns the effective GST, stamp duty and registration rates.
func (p *Project) Rates() (gst, stampDuty, registration decimal.Decimal) {
	return orDefault(p.GSTRate, DefaultGSTRate),
		orDefault(p.StampDutyRate, DefaultStampDutyRate),
		orDefault(p.RegistrationRate, DefaultRegistrationRate)
}

func orDefault(v decimal.NullDecimal, def decimal.Decimal) decimal.Decimal {
	if v.Valid {
		return v.Decimal
	}
	return def
}
