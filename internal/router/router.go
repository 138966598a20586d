package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/realty-inventory/internal/handler"
	"github.com/iliyamo/realty-inventory/internal/middleware"
	"github.com/iliyamo/realty-inventory/internal/utils"
)

// RegisterRoutes registers the unauthenticated operational endpoints:
// liveness, readiness and the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
	e.GET("/readyz", h.Ready)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterUnits registers the unit endpoints under /v1.  Every route needs a
// valid JWT with the AGENT or ADMIN role; lock acquisition additionally
// passes through the rate limiter.
func RegisterUnits(e *echo.Echo, h *handler.UnitHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleAgent, utils.RoleAdmin),
	)
	g.GET("/units/:id", h.GetUnit)
	g.GET("/units/:id/price", h.GetPrice)
	g.POST("/units/:id/price", h.QuotePrice)
	g.POST("/units/:id/lock", h.Lock, limiter)
	g.DELETE("/units/:id/lock", h.Release)
	g.POST("/units/:id/status", h.ChangeStatus, limiter)

	admin := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleAdmin),
	)
	admin.POST("/reclaim", h.Reclaim)
}
