package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/obalifehub/lifehub/internal/core/domain"
	"github.com/obalifehub/lifehub/internal/core/service"
)

// Context keys set by Auth and Session.
const (
	KeyUserID    = "user_id"
	KeyEmail     = "email"
	KeySessionID = "session_id"
	KeySession   = "session"
)

// Auth validates the bearer JWT and injects its claims into context.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			sub, _ := claims["sub"].(string)
			sid, _ := claims["sid"].(string)
			if sub == "" || sid == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token missing session identity")
			}
			email, _ := claims["email"].(string)

			c.Set(KeyUserID, sub)
			c.Set(KeyEmail, email)
			c.Set(KeySessionID, sid)

			return next(c)
		}
	}
}

// SessionResumer hands out the live session for a validated token.
type SessionResumer interface {
	Resume(ctx context.Context, sid string, identity *domain.Identity) (*service.Session, error)
}

// Session attaches the caller's live session under KeySession. It must run
// after Auth.
func Session(sessions SessionResumer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid, _ := c.Get(KeySessionID).(string)
			uid, _ := c.Get(KeyUserID).(string)
			if sid == "" || uid == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
			}
			email, _ := c.Get(KeyEmail).(string)

			s, err := sessions.Resume(c.Request().Context(), sid, &domain.Identity{ID: uid, Email: email})
			if err != nil {
				return err
			}
			c.Set(KeySession, s)
			return next(c)
		}
	}
}
