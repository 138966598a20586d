// Package queue defines the unit lifecycle events exchanged over RabbitMQ,
// the publisher used by the inventory service and the audit consumer.
package queue

import "time"

// UnitStatusQueue is the durable queue carrying UnitStatusChangedEvent.
const UnitStatusQueue = "unit.status_changed"

// Event sources.
const (
	SourceAPI       = "api"
	SourceReclaimer = "reclaimer"
	SourceLazy      = "lazy_reclaim"
)

// UnitStatusChangedEvent is published after every successful unit status
// transition.  It carries enough information for downstream consumers to
// audit or notify without querying the inventory database.
type UnitStatusChangedEvent struct {
	EventID     string     `json:"event_id"`
	UnitID      uint64     `json:"unit_id"`
	ProjectID   uint64     `json:"project_id"`
	TowerID     uint64     `json:"tower_id"`
	UnitNumber  string     `json:"unit_number"`
	From        string     `json:"from"`
	To          string     `json:"to"`
	UserID      *uint64    `json:"user_id,omitempty"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
	BookingID   *string    `json:"booking_id,omitempty"`
	Source      string     `json:"source"`
	OccurredAt  time.Time  `json:"occurred_at"`
}
