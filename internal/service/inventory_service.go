package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/realty-inventory/internal/apperror"
	"github.com/iliyamo/realty-inventory/internal/lifecycle"
	"github.com/iliyamo/realty-inventory/internal/metrics"
	"github.com/iliyamo/realty-inventory/internal/model"
	"github.com/iliyamo/realty-inventory/internal/pricing"
	"github.com/iliyamo/realty-inventory/internal/queue"
)

// DefaultLockMinutes is the lock period used when neither the caller nor
// the tenant supplies one.
const DefaultLockMinutes = 30

// MaxLockMinutes bounds any lock period, from the caller or the tenant.
const MaxLockMinutes = 7 * 24 * 60

const publishTimeout = 5 * time.Second

// InventoryService prices units and drives their lifecycle.  Every status
// change is a single conditional update in the UnitStore; the service never
// writes a status it read earlier.
type InventoryService struct {
	stores             Stores
	log                *zap.Logger
	publisher          EventPublisher
	now                func() time.Time
	defaultLockMinutes int
	maxLockMinutes     int
	reclaimBatch       int
}

// Option configures an InventoryService.
type Option func(*InventoryService)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *InventoryService) { s.now = now }
}

// WithPublisher sets the publisher for unit.status_changed events.
func WithPublisher(p EventPublisher) Option {
	return func(s *InventoryService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithDefaultLockMinutes sets the lock period used when the tenant has none.
func WithDefaultLockMinutes(m int) Option {
	return func(s *InventoryService) {
		if m > 0 {
			s.defaultLockMinutes = m
		}
	}
}

// WithMaxLockMinutes sets the longest lock period accepted.
func WithMaxLockMinutes(m int) Option {
	return func(s *InventoryService) {
		if m > 0 {
			s.maxLockMinutes = m
		}
	}
}

// WithReclaimBatchSize caps how many expired locks one sweep releases.
// Zero means no cap.
func WithReclaimBatchSize(n int) Option {
	return func(s *InventoryService) { s.reclaimBatch = n }
}

// NewInventoryService wires the service to its stores.
func NewInventoryService(stores Stores, log *zap.Logger, opts ...Option) *InventoryService {
	s := &InventoryService{
		stores:             stores,
		log:                log.Named("inventory"),
		publisher:          noopPublisher{},
		now:                time.Now,
		defaultLockMinutes: DefaultLockMinutes,
		maxLockMinutes:     MaxLockMinutes,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetUnit returns the unit with an expired lock already reclaimed.
func (s *InventoryService) GetUnit(ctx context.Context, unitID uint64) (*model.Unit, error) {
	return s.getUnit(ctx, unitID)
}

// ComputePrice fetches the unit, its tower and project, resolves the four
// rule layers and returns the itemised price.  opts is the call-site layer
// and may be nil.
func (s *InventoryService) ComputePrice(ctx context.Context, unitID uint64, opts *pricing.Rules) (pricing.Breakdown, error) {
	b, err := s.computePrice(ctx, unitID, opts)
	if err != nil {
		metrics.PriceComputations.WithLabelValues(string(apperror.CodeOf(err))).Inc()
		return pricing.Breakdown{}, err
	}
	metrics.PriceComputations.WithLabelValues("ok").Inc()
	return b, nil
}

func (s *InventoryService) computePrice(ctx context.Context, unitID uint64, opts *pricing.Rules) (pricing.Breakdown, error) {
	unit, err := s.getUnit(ctx, unitID)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	tower, err := s.stores.Towers.GetTower(ctx, unit.TowerID)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	project, err := s.stores.Projects.GetProject(ctx, unit.ProjectID)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	tenant, err := s.tenant(ctx, project.TenantID)
	if err != nil {
		return pricing.Breakdown{}, err
	}

	var tenantRules *pricing.Rules
	if tenant != nil {
		if tenantRules, err = pricing.ParseRules(tenant.Settings.PricingRules); err != nil {
			return pricing.Breakdown{}, apperror.Configuration("tenant", tenant.ID, "settings.pricingRules: %v", err)
		}
	}
	projectRules, err := pricing.ParseRules(project.CustomPricingModel)
	if err != nil {
		return pricing.Breakdown{}, apperror.Configuration("project", project.ID, "customPricingModel: %v", err)
	}
	utr, err := s.stores.UnitTypes.FindUnitTypeRule(ctx, project.TenantID, project.ID, unit.UnitType)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	unitTypeRules, err := pricing.ActiveUnitTypeRules(utr)
	if err != nil {
		return pricing.Breakdown{}, apperror.Configuration("unit_type_rule", utr.ID, "pricingRules: %v", err)
	}

	rules := pricing.Resolve(tenantRules, projectRules, unitTypeRules, opts)
	return pricing.ComputeBreakdown(unit, tower, project, rules)
}

// LockUnit locks an available unit for userID.  minutes nil means the
// tenant's lock period; a value outside 1..maxLockMinutes is a
// ValidationError.  A unit that is already locked, even by userID, yields
// InvalidTransition.
func (s *InventoryService) LockUnit(ctx context.Context, unitID, userID uint64, minutes *int) (*model.Unit, error) {
	if minutes != nil && *minutes <= 0 {
		return nil, apperror.Validation("minutes", "must be positive, got %d", *minutes)
	}
	if minutes != nil && *minutes > s.maxLockMinutes {
		return nil, apperror.Validation("minutes", "must be at most %d, got %d", s.maxLockMinutes, *minutes)
	}
	unit, err := s.getUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	period := 0
	if minutes != nil {
		period = *minutes
	} else if period, err = s.lockPeriod(ctx, unit.ProjectID); err != nil {
		return nil, err
	}
	until := s.now().UTC().Add(time.Duration(period) * time.Minute)
	return s.transition(ctx, unitID, lifecycle.Lock(userID, until), queue.SourceAPI, &userID)
}

// ReleaseUnit returns a locked unit to available.
func (s *InventoryService) ReleaseUnit(ctx context.Context, unitID uint64) (*model.Unit, error) {
	return s.transition(ctx, unitID, lifecycle.Release(), queue.SourceAPI, nil)
}

// BookUnit books a unit that holds a live lock.  A lock that expired
// before the call is treated as gone even if not yet reclaimed.
func (s *InventoryService) BookUnit(ctx context.Context, unitID uint64, bookingID string) (*model.Unit, error) {
	if bookingID == "" {
		return nil, apperror.Validation("bookingId", "must not be empty")
	}
	return s.transition(ctx, unitID, lifecycle.Book(bookingID, s.now().UTC()), queue.SourceAPI, nil)
}

// CancelBooking returns a booked unit to available.
func (s *InventoryService) CancelBooking(ctx context.Context, unitID uint64) (*model.Unit, error) {
	return s.transition(ctx, unitID, lifecycle.Cancel(), queue.SourceAPI, nil)
}

// SellUnit marks a booked unit sold.
func (s *InventoryService) SellUnit(ctx context.Context, unitID uint64) (*model.Unit, error) {
	return s.transition(ctx, unitID, lifecycle.Sell(), queue.SourceAPI, nil)
}

// StatusChange carries the inputs a target status may need.
type StatusChange struct {
	UserID    uint64 `json:"userId"`
	Minutes   *int   `json:"minutes,omitempty"`
	BookingID string `json:"bookingId,omitempty"`
}

// ChangeUnitStatus moves a unit to target, dispatching to the named
// operation.  For target available the operation depends on the current
// status: release from locked, cancel from booked.
func (s *InventoryService) ChangeUnitStatus(ctx context.Context, unitID uint64, target model.UnitStatus, data StatusChange) (*model.Unit, error) {
	switch target {
	case model.UnitStatusLocked:
		return s.LockUnit(ctx, unitID, data.UserID, data.Minutes)
	case model.UnitStatusBooked:
		return s.BookUnit(ctx, unitID, data.BookingID)
	case model.UnitStatusSold:
		return s.SellUnit(ctx, unitID)
	case model.UnitStatusAvailable:
		unit, err := s.getUnit(ctx, unitID)
		if err != nil {
			return nil, err
		}
		switch unit.Status {
		case model.UnitStatusLocked:
			return s.ReleaseUnit(ctx, unitID)
		case model.UnitStatusBooked:
			return s.CancelBooking(ctx, unitID)
		}
		return nil, lifecycle.Check(unitID, unit.Status, target)
	}
	return nil, apperror.Validation("status", "unknown target status %q", target)
}

// getUnit loads a unit and releases its lock if it has already expired, so
// callers never observe a stale lock.
func (s *InventoryService) getUnit(ctx context.Context, unitID uint64) (*model.Unit, error) {
	unit, err := s.stores.Units.GetUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if !unit.LockExpired(now) {
		return unit, nil
	}
	released, err := s.transition(ctx, unitID, lifecycle.ReleaseExpired(now), queue.SourceLazy, nil)
	switch {
	case err == nil:
		return released, nil
	case apperror.IsInvalidTransition(err):
		// Someone else moved it first; read the winner's state.
		return s.stores.Units.GetUnit(ctx, unitID)
	}
	return nil, err
}

func (s *InventoryService) lockPeriod(ctx context.Context, projectID uint64) (int, error) {
	project, err := s.stores.Projects.GetProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	tenant, err := s.tenant(ctx, project.TenantID)
	if err != nil {
		return 0, err
	}
	period := tenant.LockPeriodMinutes(s.defaultLockMinutes)
	if period > s.maxLockMinutes {
		if tenant == nil || tenant.Settings.BusinessRules.LockPeriodMinutes <= 0 {
			return 0, apperror.Configuration("lock_period", nil, "default lock period %d exceeds maximum %d", period, s.maxLockMinutes)
		}
		return 0, apperror.Configuration("tenant", tenant.ID,
			"businessRules.lockPeriodMinutes %d exceeds maximum %d", period, s.maxLockMinutes)
	}
	return period, nil
}

// tenant returns nil for a missing tenant; its layers are then empty.
func (s *InventoryService) tenant(ctx context.Context, tenantID uint64) (*model.Tenant, error) {
	t, err := s.stores.Tenants.GetTenant(ctx, tenantID)
	if apperror.IsNotFound(err) {
		s.log.Debug("tenant not found; using empty settings", zap.Uint64("tenant_id", tenantID))
		return nil, nil
	}
	return t, err
}

func (s *InventoryService) transition(ctx context.Context, unitID uint64, upd lifecycle.Update, source string, actor *uint64) (*model.Unit, error) {
	unit, err := s.stores.Units.UpdateUnitIf(ctx, unitID, upd)
	if err != nil {
		metrics.UnitTransitionsRejected.WithLabelValues(string(upd.To), string(apperror.CodeOf(err))).Inc()
		return nil, err
	}
	metrics.UnitTransitions.WithLabelValues(string(upd.From), string(upd.To), source).Inc()
	s.log.Info("unit status changed",
		zap.Uint64("unit_id", unitID),
		zap.String("from", string(upd.From)),
		zap.String("to", string(upd.To)),
		zap.String("source", source))
	s.publish(ctx, upd.From, unit, source, actor)
	return unit, nil
}

func (s *InventoryService) publish(ctx context.Context, from model.UnitStatus, unit *model.Unit, source string, actor *uint64) {
	ev := queue.UnitStatusChangedEvent{
		UnitID:      unit.ID,
		ProjectID:   unit.ProjectID,
		TowerID:     unit.TowerID,
		UnitNumber:  unit.UnitNumber,
		From:        string(from),
		To:          string(unit.Status),
		UserID:      actor,
		LockedUntil: unit.LockedUntil,
		BookingID:   unit.BookingID,
		Source:      source,
		OccurredAt:  s.now().UTC(),
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishUnitStatusChanged(pctx, ev); err != nil {
		s.log.Warn("publish unit.status_changed failed", zap.Uint64("unit_id", unit.ID), zap.Error(err))
	}
}
