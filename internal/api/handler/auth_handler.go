package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/obalifehub/lifehub/internal/api/middleware"
	"github.com/obalifehub/lifehub/internal/core/ports"
	"github.com/obalifehub/lifehub/internal/core/service"
)

// SessionManager opens and closes server-side sessions.
type SessionManager interface {
	SignUp(ctx context.Context, email, password, fullName, role string) (*service.Session, error)
	SignIn(ctx context.Context, email, password string) (*service.Session, error)
	SignOut(sid string)
}

type AuthHandler struct {
	sessions SessionManager
	tokens   ports.TokenIssuer
}

func NewAuthHandler(sessions SessionManager, tokens ports.TokenIssuer) *AuthHandler {
	return &AuthHandler{sessions: sessions, tokens: tokens}
}

// SignUp creates an account with its profile and signs it in.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "Account details; role is parent, child or senior"
// @Success      201   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /auth/signup [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	s, err := h.sessions.SignUp(c.Request().Context(), req.Email, req.Password, req.FullName, req.Role)
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusCreated, s)
}

// SignIn authenticates and opens a session.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signInRequest  true  "Credentials"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /auth/signin [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	s, err := h.sessions.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, s)
}

// SignOut ends the caller's session. Repeating it is harmless.
//
// @Summary      Sign out
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  errorResponse
// @Router       /auth/signout [post]
func (h *AuthHandler) SignOut(c echo.Context) error {
	sid, _ := c.Get(middleware.KeySessionID).(string)
	if sid == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	h.sessions.SignOut(sid)
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) respond(c echo.Context, status int, s *service.Session) error {
	snap := s.Snapshot()
	token, err := h.tokens.IssueToken(snap.User, s.ID())
	if err != nil {
		h.sessions.SignOut(s.ID())
		return err
	}
	return c.JSON(status, toSessionResponse(token, s))
}
