package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/iliyamo/realty-inventory/internal/apperror"
	"github.com/iliyamo/realty-inventory/internal/lifecycle"
	"github.com/iliyamo/realty-inventory/internal/model"
)

type unitTypeKey struct {
	tenantID, projectID uint64
	unitType            string
}

// MemoryStore keeps the inventory in process memory.  It implements the
// same store contracts as the MySQL repositories: UpdateUnitIf checks and
// applies an update under one mutex, so concurrent transitions on a unit
// serialise exactly as the conditional UPDATE does.  Values are cloned on
// the way in and out.
type MemoryStore struct {
	mu        sync.RWMutex
	units     map[uint64]*model.Unit
	towers    map[uint64]model.Tower
	projects  map[uint64]model.Project
	tenants   map[uint64]model.Tenant
	unitTypes map[unitTypeKey]model.UnitTypeRule
	now       func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		units:     make(map[uint64]*model.Unit),
		towers:    make(map[uint64]model.Tower),
		projects:  make(map[uint64]model.Project),
		tenants:   make(map[uint64]model.Tenant),
		unitTypes: make(map[unitTypeKey]model.UnitTypeRule),
		now:       time.Now,
	}
}

// PutUnit inserts or replaces a unit.
func (m *MemoryStore) PutUnit(u *model.Unit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units[u.ID] = u.Clone()
}

// PutTower inserts or replaces a tower.
func (m *MemoryStore) PutTower(t model.Tower) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.towers[t.ID] = t
}

// PutProject inserts or replaces a project.
func (m *MemoryStore) PutProject(p model.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
}

// PutTenant inserts or replaces a tenant.
func (m *MemoryStore) PutTenant(t model.Tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[t.ID] = t
}

// PutUnitTypeRule inserts or replaces the rule for its (tenant, project, unit type).
func (m *MemoryStore) PutUnitTypeRule(r model.UnitTypeRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unitTypes[unitTypeKey{r.TenantID, r.ProjectID, r.UnitType}] = r
}

func (m *MemoryStore) GetUnit(_ context.Context, id uint64) (*model.Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.units[id]
	if !ok {
		return nil, apperror.NotFound("unit", id)
	}
	return u.Clone(), nil
}

// UpdateUnitIf applies upd when its conditions hold for the stored unit.
func (m *MemoryStore) UpdateUnitIf(_ context.Context, id uint64, upd lifecycle.Update) (*model.Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[id]
	if !ok {
		return nil, apperror.NotFound("unit", id)
	}
	if !upd.Matches(u) {
		return nil, upd.Mismatch(id, u)
	}
	upd.Apply(u)
	u.UpdatedAt = m.now().UTC()
	return u.Clone(), nil
}

func (m *MemoryStore) ListExpiredLocks(_ context.Context, now time.Time, limit int) ([]uint64, error) {
	m.mu.RLock()
	var expired []*model.Unit
	for _, u := range m.units {
		if u.LockExpired(now) {
			expired = append(expired, u)
		}
	}
	slices.SortFunc(expired, func(a, b *model.Unit) int {
		if c := a.LockedUntil.Compare(*b.LockedUntil); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	ids := make([]uint64, 0, len(expired))
	for _, u := range expired {
		ids = append(ids, u.ID)
	}
	m.mu.RUnlock()
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *MemoryStore) GetTower(_ context.Context, id uint64) (*model.Tower, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.towers[id]
	if !ok {
		return nil, apperror.NotFound("tower", id)
	}
	return &t, nil
}

func (m *MemoryStore) GetProject(_ context.Context, id uint64) (*model.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, apperror.NotFound("project", id)
	}
	return &p, nil
}

func (m *MemoryStore) GetTenant(_ context.Context, id uint64) (*model.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, apperror.NotFound("tenant", id)
	}
	return &t, nil
}

func (m *MemoryStore) FindUnitTypeRule(_ context.Context, tenantID, projectID uint64, unitType string) (*model.UnitTypeRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.unitTypes[unitTypeKey{tenantID, projectID, unitType}]
	if !ok {
		return nil, nil
	}
	return &r, nil
}
