package model

import "encoding/json"

// BusinessRules holds tenant-wide operational settings.
type BusinessRules struct {
	LockPeriodMinutes int `json:"lockPeriodMinutes"`
}

// TenantSettings is stored as JSON in tenants.settings.
type TenantSettings struct {
	PricingRules  json.RawMessage `json:"pricingRules,omitempty"`
	BusinessRules BusinessRules   `json:"businessRules"`
}

// Tenant is the organisation that owns projects.  Its pricing rules are
// the lowest-precedence layer.
type Tenant struct {
	ID       uint64         `json:"id"`
	Name     string         `json:"name"`
	Settings TenantSettings `json:"settings"`
}

// LockPeriodMinutes returns the tenant's lock duration, or fallback when
// the tenant has none configured.
func (t *Tenant) LockPeriodMinutes(fallback int) int {
	if t != nil && t.Settings.BusinessRules.LockPeriodMinutes > 0 {
		return t.Settings.BusinessRules.LockPeriodMinutes
	}
	return fallback
}

// UnitTypeRule carries pricing overrides for one unit type of a project,
// keyed by (TenantID, ProjectID, UnitType).  Inactive rules are ignored.
type UnitTypeRule struct {
	ID           uint64          `json:"id"`
	TenantID     uint64          `json:"tenantId"`
	ProjectID    uint64          `json:"projectId"`
	UnitType     string          `json:"unitType"`
	PricingRules json.RawMessage `json:"pricingRules,omitempty"`
	Active       bool            `json:"active"`
}
