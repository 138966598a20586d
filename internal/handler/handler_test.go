package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iliyamo/realty-inventory/internal/middleware"
	"github.com/iliyamo/realty-inventory/internal/model"
	"github.com/iliyamo/realty-inventory/internal/pricing"
	"github.com/iliyamo/realty-inventory/internal/repository"
	"github.com/iliyamo/realty-inventory/internal/service"
	"github.com/iliyamo/realty-inventory/internal/utils"
)

const testSecret = "handler-secret"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedStore() *repository.MemoryStore {
	store := repository.NewMemoryStore()
	store.PutTenant(model.Tenant{ID: 1, Name: "Acme"})
	store.PutProject(model.Project{
		ID:               100,
		TenantID:         1,
		Name:             "Skyline",
		GSTRate:          decimal.NewNullDecimal(dec("5")),
		StampDutyRate:    decimal.NewNullDecimal(dec("5")),
		RegistrationRate: decimal.NewNullDecimal(dec("1")),
	})
	store.PutTower(model.Tower{
		ID:        10,
		ProjectID: 100,
		Name:      "A",
		Premiums: model.TowerPremiums{
			FloorRise: &model.FloorRise{Type: model.FloorRiseFixed, Value: dec("100"), FloorStart: 5},
		},
	})
	store.PutUnit(&model.Unit{
		ID:               1,
		TowerID:          10,
		ProjectID:        100,
		UnitNumber:       "A-1201",
		UnitType:         "3BHK",
		Floor:            12,
		CarpetArea:       dec("700"),
		BuiltUpArea:      dec("850"),
		SuperBuiltUpArea: dec("1000"),
		BasePrice:        dec("10000"),
		Status:           model.UnitStatusAvailable,
	})
	return store
}

func newTestServer(t *testing.T, svc Inventory) *echo.Echo {
	t.Helper()
	h := NewUnitHandler(svc, zaptest.NewLogger(t))
	e := echo.New()
	g := e.Group("/v1", middleware.JWTAuth(testSecret))
	g.GET("/units/:id", h.GetUnit)
	g.GET("/units/:id/price", h.GetPrice)
	g.POST("/units/:id/price", h.QuotePrice)
	g.POST("/units/:id/lock", h.Lock)
	g.DELETE("/units/:id/lock", h.Release)
	g.POST("/units/:id/status", h.ChangeStatus)
	g.POST("/admin/reclaim", h.Reclaim)
	return e
}

func newInventory(t *testing.T) (*echo.Echo, *repository.MemoryStore) {
	t.Helper()
	store := seedStore()
	svc := service.NewInventoryService(service.Stores{
		Units: store, Towers: store, Projects: store, Tenants: store, UnitTypes: store,
	}, zaptest.NewLogger(t))
	return newTestServer(t, svc), store
}

func call(t *testing.T, e *echo.Echo, method, path string, userID uint64, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	tok, err := utils.NewAccessToken(testSecret, userID, utils.RoleAgent, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeUnit(t *testing.T, rec *httptest.ResponseRecorder) model.Unit {
	t.Helper()
	var u model.Unit
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u), rec.Body.String())
	return u
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

func TestGetPrice(t *testing.T) {
	e, _ := newInventory(t)

	rec := call(t, e, http.MethodGet, "/v1/units/1/price", 1, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var bd pricing.Breakdown
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bd))
	assert.True(t, bd.Subtotal.Equal(dec("10800000")), bd.Subtotal.String())
	assert.True(t, bd.TotalPrice.Equal(dec("11988000")), bd.TotalPrice.String())
}

func TestQuotePrice_CallSiteRules(t *testing.T) {
	e, _ := newInventory(t)

	rec := call(t, e, http.MethodPost, "/v1/units/1/price", 1, `{"gst": {"type": "rate", "rate": "0"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var bd pricing.Breakdown
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bd))
	assert.True(t, bd.Taxes.GST.IsZero(), bd.Taxes.GST.String())

	rec = call(t, e, http.MethodPost, "/v1/units/1/price", 1, `{"gst": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUnit_Errors(t *testing.T) {
	e, _ := newInventory(t)

	rec := call(t, e, http.MethodGet, "/v1/units/404", 1, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))

	rec = call(t, e, http.MethodGet, "/v1/units/abc", 1, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))
}

func TestLockAndRelease(t *testing.T) {
	e, _ := newInventory(t)

	rec := call(t, e, http.MethodPost, "/v1/units/1/lock", 42, `{"minutes": 15}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	u := decodeUnit(t, rec)
	assert.Equal(t, model.UnitStatusLocked, u.Status)
	require.NotNil(t, u.LockedBy)
	assert.Equal(t, uint64(42), *u.LockedBy)
	require.NotNil(t, u.LockedUntil)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), *u.LockedUntil, time.Minute)

	rec = call(t, e, http.MethodPost, "/v1/units/1/lock", 43, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(t, rec))

	rec = call(t, e, http.MethodDelete, "/v1/units/1/lock", 42, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	u = decodeUnit(t, rec)
	assert.Equal(t, model.UnitStatusAvailable, u.Status)
	assert.Nil(t, u.LockedBy)

	rec = call(t, e, http.MethodDelete, "/v1/units/1/lock", 42, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLock_DefaultAndInvalidMinutes(t *testing.T) {
	e, _ := newInventory(t)

	rec := call(t, e, http.MethodPost, "/v1/units/1/lock", 42, `{"minutes": 0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))

	rec = call(t, e, http.MethodPost, "/v1/units/1/lock", 42, `{"minutes": 200000000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))

	rec = call(t, e, http.MethodPost, "/v1/units/1/lock", 42, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	u := decodeUnit(t, rec)
	require.NotNil(t, u.LockedUntil)
	assert.WithinDuration(t, time.Now().Add(service.DefaultLockMinutes*time.Minute), *u.LockedUntil, time.Minute)
}

func TestChangeStatus_FullLifecycle(t *testing.T) {
	e, _ := newInventory(t)

	steps := []struct {
		body string
		want model.UnitStatus
	}{
		{`{"status": "locked", "minutes": 10}`, model.UnitStatusLocked},
		{`{"status": "booked", "bookingId": "BK-7"}`, model.UnitStatusBooked},
		{`{"status": "sold"}`, model.UnitStatusSold},
	}
	for _, s := range steps {
		rec := call(t, e, http.MethodPost, "/v1/units/1/status", 42, s.body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		u := decodeUnit(t, rec)
		assert.Equal(t, s.want, u.Status)
	}

	rec := call(t, e, http.MethodPost, "/v1/units/1/status", 42, `{"status": "available"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(t, rec))
}

func TestChangeStatus_CancelBooking(t *testing.T) {
	e, store := newInventory(t)

	require.Equal(t, http.StatusOK, call(t, e, http.MethodPost, "/v1/units/1/status", 42, `{"status": "locked"}`).Code)
	require.Equal(t, http.StatusOK, call(t, e, http.MethodPost, "/v1/units/1/status", 42, `{"status": "booked", "bookingId": "BK-9"}`).Code)

	rec := call(t, e, http.MethodPost, "/v1/units/1/status", 42, `{"status": "available"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	u, err := store.GetUnit(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.UnitStatusAvailable, u.Status)
	assert.Nil(t, u.BookingID)
}

func TestChangeStatus_Validation(t *testing.T) {
	e, _ := newInventory(t)

	rec := call(t, e, http.MethodPost, "/v1/units/1/status", 42, `{"status": "reserved"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, e, http.MethodPost, "/v1/units/1/status", 42, `{"status": "booked", "bookingId": "BK-1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code, "booking needs a lock first")
}

func TestReclaim(t *testing.T) {
	e, store := newInventory(t)

	past := time.Now().Add(-time.Hour)
	user := uint64(5)
	u, err := store.GetUnit(context.Background(), 1)
	require.NoError(t, err)
	u.Status = model.UnitStatusLocked
	u.LockedBy = &user
	u.LockedUntil = &past
	store.PutUnit(u)

	rec := call(t, e, http.MethodPost, "/v1/admin/reclaim", 1, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"releasedCount":1,"skipped":0,"failed":0}`, rec.Body.String())
}

// brokenInventory fails every call with an error outside the taxonomy.
type brokenInventory struct{ Inventory }

func (brokenInventory) GetUnit(context.Context, uint64) (*model.Unit, error) {
	return nil, errors.New("dial tcp 127.0.0.1:3306: connection refused")
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	e := newTestServer(t, brokenInventory{})

	rec := call(t, e, http.MethodGet, "/v1/units/1", 1, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"INTERNAL","message":"internal error"}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	e := echo.New()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	h := &HealthHandler{Redis: rdb}
	e.GET("/healthz", h.Health)
	e.GET("/readyz", h.Ready)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = get("/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"database":"disabled","redis":"ok"}`, rec.Body.String())

	mr.Close()
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz").Code)
}
