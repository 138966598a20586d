package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnitStatus is the lifecycle state of an inventory unit.  The value is
// stored verbatim in units.status.
type UnitStatus string

const (
	UnitStatusAvailable UnitStatus = "available"
	UnitStatusLocked    UnitStatus = "locked"
	UnitStatusBooked    UnitStatus = "booked"
	UnitStatusSold      UnitStatus = "sold"
)

// Valid reports whether s is one of the known unit statuses.
func (s UnitStatus) Valid() bool {
	switch s {
	case UnitStatusAvailable, UnitStatusLocked, UnitStatusBooked, UnitStatusSold:
		return true
	}
	return false
}

// AreaField names one of the area measures a unit price can be based on.
type AreaField string

const (
	AreaCarpet        AreaField = "carpetArea"
	AreaBuiltUp       AreaField = "builtUpArea"
	AreaSuperBuiltUp  AreaField = "superBuiltUpArea"
	DefaultPriceBasis           = AreaSuperBuiltUp
)

// PremiumAdjustment is an extra line applied on top of the base price.
// Either Amount (fixed) or Percentage (of base price) is used; a positive
// Percentage wins.  Adjustments of type "discount" reduce the price.
type PremiumAdjustment struct {
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Percentage  decimal.Decimal `json:"percentage"`
	Description string          `json:"description,omitempty"`
}

// AdjustmentDiscount is the adjustment type that is subtracted instead of added.
const AdjustmentDiscount = "discount"

// AdditionalCharge is a flat charge such as club membership or parking.
type AdditionalCharge struct {
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Required    bool            `json:"required"`
	Description string          `json:"description,omitempty"`
}

// Unit represents a sellable inventory unit (an apartment, a shop, a plot)
// as stored in the `units` table.
//
// Fields:
//
//	ID, TowerID, ProjectID – identifiers of the unit and its owners.
//	UnitType               – key into unit_type_rules (e.g. 2BHK).
//	Floor                  – floor number, used for floor-rise premiums.
//	*Area                  – area measures in sqft.
//	BasePrice              – currency per sqft of the priced area.
//	Status                 – lifecycle state, mutated only through conditional updates.
//	LockedBy, LockedUntil  – reservation holder and expiry; set iff Status is locked.
//	BookingID              – booking reference; set iff Status is booked or sold.
type Unit struct {
	ID                 uint64              `json:"id"`
	TowerID            uint64              `json:"towerId"`
	ProjectID          uint64              `json:"projectId"`
	UnitNumber         string              `json:"unitNumber"`
	UnitType           string              `json:"unitType"`
	Floor              int                 `json:"floor"`
	CarpetArea         decimal.Decimal     `json:"carpetArea"`
	BuiltUpArea        decimal.Decimal     `json:"builtUpArea"`
	SuperBuiltUpArea   decimal.Decimal     `json:"superBuiltUpArea"`
	BasePrice          decimal.Decimal     `json:"basePrice"`
	Views              []string            `json:"views"`
	PremiumAdjustments []PremiumAdjustment `json:"premiumAdjustments"`
	AdditionalCharges  []AdditionalCharge  `json:"additionalCharges"`
	Status             UnitStatus          `json:"status"`
	LockedBy           *uint64             `json:"lockedBy,omitempty"`
	LockedUntil        *time.Time          `json:"lockedUntil,omitempty"`
	BookingID          *string             `json:"bookingId,omitempty"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// Area returns the measure named by field.  The boolean is false for an
// unknown field name.
func (u *Unit) Area(field AreaField) (decimal.Decimal, bool) {
	switch field {
	case AreaCarpet:
		return u.CarpetArea, true
	case AreaBuiltUp:
		return u.BuiltUpArea, true
	case AreaSuperBuiltUp:
		return u.SuperBuiltUpArea, true
	}
	return decimal.Zero, false
}

// LockExpired reports whether the unit holds a lock whose expiry is
// strictly before now.
func (u *Unit) LockExpired(now time.Time) bool {
	return u.Status == UnitStatusLocked && u.LockedUntil != nil && u.LockedUntil.Before(now)
}

// HasView reports whether the unit lists the given view tag.
func (u *Unit) HasView(view string) bool {
	for _, v := range u.Views {
		if v == view {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can hand out units without sharing
// slices or pointers with a store.
func (u *Unit) Clone() *Unit {
	c := *u
	c.Views = append([]string(nil), u.Views...)
	c.PremiumAdjustments = append([]PremiumAdjustment(nil), u.PremiumAdjustments...)
	c.AdditionalCharges = append([]AdditionalCharge(nil), u.AdditionalCharges...)
	if u.LockedBy != nil {
		v := *u.LockedBy
		c.LockedBy = &v
	}
	if u.LockedUntil != nil {
		v := *u.LockedUntil
		c.LockedUntil = &v
	}
	if u.BookingID != nil {
		v := *u.BookingID
		c.BookingID = &v
	}
	return &c
}
