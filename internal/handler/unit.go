package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/realty-inventory/internal/apperror"
	"github.com/iliyamo/realty-inventory/internal/model"
	"github.com/iliyamo/realty-inventory/internal/pricing"
	"github.com/iliyamo/realty-inventory/internal/service"
)

// Inventory is the service surface the unit endpoints call.
type Inventory interface {
	GetUnit(ctx context.Context, unitID uint64) (*model.Unit, error)
	ComputePrice(ctx context.Context, unitID uint64, opts *pricing.Rules) (pricing.Breakdown, error)
	LockUnit(ctx context.Context, unitID, userID uint64, minutes *int) (*model.Unit, error)
	ReleaseUnit(ctx context.Context, unitID uint64) (*model.Unit, error)
	ChangeUnitStatus(ctx context.Context, unitID uint64, target model.UnitStatus, data service.StatusChange) (*model.Unit, error)
	ReclaimExpiredLocks(ctx context.Context) (service.ReclaimResult, error)
}

// UnitHandler exposes unit reads, pricing and status changes.
type UnitHandler struct {
	svc Inventory
	log *zap.Logger
}

func NewUnitHandler(svc Inventory, log *zap.Logger) *UnitHandler {
	return &UnitHandler{svc: svc, log: log.Named("http")}
}

// lockRequest is the optional body of POST /v1/units/:id/lock.
type lockRequest struct {
	Minutes *int `json:"minutes"` // lock period; tenant default when omitted
}

// statusRequest is the body of POST /v1/units/:id/status.
type statusRequest struct {
	Status    model.UnitStatus `json:"status"`              // target status
	Minutes   *int             `json:"minutes,omitempty"`   // only for locked
	BookingID string           `json:"bookingId,omitempty"` // only for booked
}

// GetUnit handles GET /v1/units/:id.  An expired lock is released before
// the unit is returned.
func (h *UnitHandler) GetUnit(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	unit, err := h.svc.GetUnit(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, unit)
}

// GetPrice handles GET /v1/units/:id/price using only the stored rule layers.
func (h *UnitHandler) GetPrice(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	bd, err := h.svc.ComputePrice(c.Request().Context(), id, nil)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, bd)
}

// QuotePrice handles POST /v1/units/:id/price.  The body is a rules
// document applied as the highest-priority layer.
func (h *UnitHandler) QuotePrice(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var opts pricing.Rules
	if err := c.Bind(&opts); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: string(apperror.CodeValidation), Message: "invalid rules document"})
	}
	bd, err := h.svc.ComputePrice(c.Request().Context(), id, &opts)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, bd)
}

// Lock handles POST /v1/units/:id/lock for the authenticated user.
func (h *UnitHandler) Lock(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized", Message: err.Error()})
	}
	id, err := parseID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req lockRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errorBody{Error: string(apperror.CodeValidation), Message: "invalid request body"})
		}
	}
	unit, err := h.svc.LockUnit(c.Request().Context(), id, userID, req.Minutes)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, unit)
}

// Release handles DELETE /v1/units/:id/lock.
func (h *UnitHandler) Release(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	unit, err := h.svc.ReleaseUnit(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, unit)
}

// ChangeStatus handles POST /v1/units/:id/status.  A lock requested here is
// taken on behalf of the authenticated user.
func (h *UnitHandler) ChangeStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: string(apperror.CodeValidation), Message: "invalid request body"})
	}
	data := service.StatusChange{Minutes: req.Minutes, BookingID: req.BookingID}
	if req.Status == model.UnitStatusLocked {
		userID, err := getUserID(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized", Message: err.Error()})
		}
		data.UserID = userID
	}
	unit, err := h.svc.ChangeUnitStatus(c.Request().Context(), id, req.Status, data)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, unit)
}

// Reclaim handles POST /v1/admin/reclaim and runs one sweep in-line.
func (h *UnitHandler) Reclaim(c echo.Context) error {
	res, err := h.svc.ReclaimExpiredLocks(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}
