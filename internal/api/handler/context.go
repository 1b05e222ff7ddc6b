package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/obalifehub/lifehub/internal/api/middleware"
	"github.com/obalifehub/lifehub/internal/core/service"
)

// ctxSession returns the live session attached by the Session middleware.
// The user id comes from the session rather than the token so a result is
// always attributed to whoever is signed in right now.
func ctxSession(c echo.Context) (*service.Session, string, error) {
	s, _ := c.Get(middleware.KeySession).(*service.Session)
	if s == nil {
		return nil, "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	uid := s.UserID()
	if uid == "" {
		return nil, "", echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
	}
	s.Touch()
	return s, uid, nil
}
