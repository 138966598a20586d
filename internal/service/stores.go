// Package service implements the inventory operations: pricing a unit and
// moving it through its lifecycle.  It fetches entities and rule layers
// through the store interfaces below and delegates the pure work to the
// pricing and lifecycle packages.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/realty-inventory/internal/lifecycle"
	"github.com/iliyamo/realty-inventory/internal/model"
	"github.com/iliyamo/realty-inventory/internal/queue"
)

// UnitStore reads units and applies conditional status updates.
// UpdateUnitIf must be atomic: the condition check and the write happen as
// one step, and a failed condition yields NotFound or InvalidTransition.
type UnitStore interface {
	GetUnit(ctx context.Context, id uint64) (*model.Unit, error)
	UpdateUnitIf(ctx context.Context, id uint64, upd lifecycle.Update) (*model.Unit, error)
	ListExpiredLocks(ctx context.Context, now time.Time, limit int) ([]uint64, error)
}

type TowerStore interface {
	GetTower(ctx context.Context, id uint64) (*model.Tower, error)
}

type ProjectStore interface {
	GetProject(ctx context.Context, id uint64) (*model.Project, error)
}

type TenantStore interface {
	GetTenant(ctx context.Context, id uint64) (*model.Tenant, error)
}

// UnitTypeRuleStore returns nil, nil when no rule exists for the key.
type UnitTypeRuleStore interface {
	FindUnitTypeRule(ctx context.Context, tenantID, projectID uint64, unitType string) (*model.UnitTypeRule, error)
}

// Stores bundles the store implementations used by InventoryService.
type Stores struct {
	Units     UnitStore
	Towers    TowerStore
	Projects  ProjectStore
	Tenants   TenantStore
	UnitTypes UnitTypeRuleStore
}

// EventPublisher publishes lifecycle events.  Failures are logged by the
// service and never fail the transition that produced them.
type EventPublisher interface {
	PublishUnitStatusChanged(ctx context.Context, ev queue.UnitStatusChangedEvent) error
}

type noopPublisher struct{}

func (noopPublisher) PublishUnitStatusChanged(context.Context, queue.UnitStatusChangedEvent) error {
	return nil
}
