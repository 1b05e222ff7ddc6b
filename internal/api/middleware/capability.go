package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/obalifehub/lifehub/internal/core/domain"
	"github.com/obalifehub/lifehub/internal/core/service"
)

type snapshotter interface {
	Snapshot() service.Snapshot
}

// RequireCapability lets the request through only when the session's
// current profile has capability. A session without a loaded profile is
// refused.
func RequireCapability(capability domain.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, ok := c.Get(KeySession).(snapshotter)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "no active session")
			}
			p := s.Snapshot().Profile
			if p == nil || !p.Has(capability) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
