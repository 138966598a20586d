// Package lifecycle defines the unit status state machine:
//
//	available → locked
//	locked    → available | booked
//	booked    → available | sold   (booked → available is a cancellation)
//	sold      → (terminal)
//
// Transitions are expressed as Update values: a compare-and-set on the
// expected prior status plus the full set of new lock and booking fields.
// Stores apply an Update atomically and never as a read followed by a write.
package lifecycle

import (
	"time"

	"github.com/iliyamo/realty-inventory/internal/apperror"
	"github.com/iliyamo/realty-inventory/internal/model"
)

var transitions = map[model.UnitStatus][]model.UnitStatus{
	model.UnitStatusAvailable: {model.UnitStatusLocked},
	model.UnitStatusLocked:    {model.UnitStatusAvailable, model.UnitStatusBooked},
	model.UnitStatusBooked:    {model.UnitStatusAvailable, model.UnitStatusSold},
	model.UnitStatusSold:      {},
}

// Allowed reports whether the table permits from → to.
func Allowed(from, to model.UnitStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Check returns an InvalidTransitionError when from → to is not in the table.
func Check(unitID uint64, from, to model.UnitStatus) error {
	if Allowed(from, to) {
		return nil
	}
	return apperror.InvalidTransition(unitID, from, to, reasonFor(from, to))
}

func reasonFor(from, to model.UnitStatus) string {
	switch {
	case from == model.UnitStatusLocked && to == model.UnitStatusLocked:
		return "unit is already locked"
	case from == model.UnitStatusSold:
		return "unit is sold"
	case to == model.UnitStatusAvailable && from == model.UnitStatusAvailable:
		return "unit is not locked"
	case to == model.UnitStatusBooked && from != model.UnitStatusLocked:
		return "unit must be locked before booking"
	case to == model.UnitStatusSold && from != model.UnitStatusBooked:
		return "unit must be booked before sale"
	case !from.Valid():
		return "unknown current status"
	}
	return ""
}

// ExpiryCondition constrains an Update on the unit's lock expiry.
type ExpiryCondition int

const (
	// AnyExpiry applies no lock expiry condition.
	AnyExpiry ExpiryCondition = iota
	// LockExpired requires locked_until < At.
	LockExpired
	// LockLive requires locked_until >= At.
	LockLive
)

// Update is a conditional status change.  It applies only when the unit's
// current status equals From and Expiry holds at At.  On success the unit's
// status becomes To and its lock fields become LockedBy and LockedUntil.
// BookingID replaces the booking reference unless KeepBooking is set.
type Update struct {
	From        model.UnitStatus
	To          model.UnitStatus
	Expiry      ExpiryCondition
	At          time.Time
	LockedBy    *uint64
	LockedUntil *time.Time
	BookingID   *string
	KeepBooking bool
}

// Lock takes an available unit into locked for userID until until.
func Lock(userID uint64, until time.Time) Update {
	u, t := userID, until
	return Update{From: model.UnitStatusAvailable, To: model.UnitStatusLocked, LockedBy: &u, LockedUntil: &t}
}

// Release returns a locked unit to available and clears its lock.
func Release() Update {
	return Update{From: model.UnitStatusLocked, To: model.UnitStatusAvailable}
}

// ReleaseExpired is Release restricted to locks that expired before now.
// A unit that was booked or re-locked concurrently does not match.
func ReleaseExpired(now time.Time) Update {
	u := Release()
	u.Expiry, u.At = LockExpired, now
	return u
}

// Book moves a unit holding a live lock to booked and records bookingID.
func Book(bookingID string, now time.Time) Update {
	id := bookingID
	return Update{From: model.UnitStatusLocked, To: model.UnitStatusBooked, Expiry: LockLive, At: now, BookingID: &id}
}

// Cancel returns a booked unit to available and clears the booking.
func Cancel() Update {
	return Update{From: model.UnitStatusBooked, To: model.UnitStatusAvailable}
}

// Sell marks a booked unit sold, keeping its booking reference.
func Sell() Update {
	return Update{From: model.UnitStatusBooked, To: model.UnitStatusSold, KeepBooking: true}
}

// Matches reports whether u's conditions hold for unit.
func (u Update) Matches(unit *model.Unit) bool {
	if unit.Status != u.From {
		return false
	}
	switch u.Expiry {
	case LockExpired:
		return unit.LockedUntil != nil && unit.LockedUntil.Before(u.At)
	case LockLive:
		return unit.LockedUntil != nil && !unit.LockedUntil.Before(u.At)
	}
	return true
}

// Apply writes u's new fields onto unit without checking conditions.
func (u Update) Apply(unit *model.Unit) {
	unit.Status = u.To
	unit.LockedBy = copyPtr(u.LockedBy)
	unit.LockedUntil = copyPtr(u.LockedUntil)
	if !u.KeepBooking {
		unit.BookingID = copyPtr(u.BookingID)
	}
}

// Mismatch explains why u did not apply to a unit currently in state cur.
func (u Update) Mismatch(unitID uint64, cur *model.Unit) error {
	if cur.Status == u.From {
		switch u.Expiry {
		case LockExpired:
			return apperror.InvalidTransition(unitID, cur.Status, u.To, "lock has not expired")
		case LockLive:
			return apperror.InvalidTransition(unitID, cur.Status, u.To, "lock has expired")
		}
	}
	if err := Check(unitID, cur.Status, u.To); err != nil {
		return err
	}
	return apperror.InvalidTransition(unitID, cur.Status, u.To, "unit changed concurrently")
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
