package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// HealthHandler serves liveness and readiness probes.  DB and Redis are
// optional; a nil dependency is reported as "disabled".
type HealthHandler struct {
	DB    *sql.DB
	Redis *redis.Client
}

// Health is the liveness probe used by load balancers.  It returns a plain
// "ok" with status 200 as long as the process serves HTTP.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Ready pings every configured dependency.  It answers 503 when any ping
// fails so traffic is held back until storage is reachable.
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": "disabled", "redis": "disabled"}
	status := http.StatusOK
	if h.DB != nil {
		checks["database"] = "ok"
		if err := h.DB.PingContext(ctx); err != nil {
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	if h.Redis != nil {
		checks["redis"] = "ok"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	return c.JSON(status, checks)
}
