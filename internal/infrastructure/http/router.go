package http

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/obalifehub/lifehub/internal/infrastructure/http/handlers"
)

// NewOpsRouter builds the operations listener: probes and Prometheus
// metrics, kept off the public API port.
func NewOpsRouter(checks ...handlers.Check) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())

	e.GET("/health", handlers.NewHealthHandler().Liveness)
	e.GET("/health/ready", handlers.NewReadinessHandler(checks...).Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
