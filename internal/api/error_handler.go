package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/obalifehub/lifehub/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps domain
// errors to status codes and renders {"error": "<message>"}. Unexpected
// errors are logged and answered with a generic 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, domain.ErrInvalidRole):
		return http.StatusBadRequest, "role must be one of parent, child, senior"
	case errors.Is(err, domain.ErrIdentityExists):
		return http.StatusConflict, "email already registered"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrNotSignedIn):
		return http.StatusUnauthorized, "not signed in"

	case errors.Is(err, domain.ErrInvalidProfile):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrProfileNotFound):
		return http.StatusNotFound, "profile not found"
	case errors.Is(err, domain.ErrActivityNotFound):
		return http.StatusNotFound, "activity not found"
	case errors.Is(err, domain.ErrRewardNotFound):
		return http.StatusNotFound, "reward not found"

	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, "insufficient balance"
	case errors.Is(err, domain.ErrInvalidReward):
		return http.StatusUnprocessableEntity, "invalid coin amount"
	case errors.Is(err, domain.ErrOutOfStock):
		return http.StatusConflict, "reward out of stock"
	case errors.Is(err, domain.ErrLedgerBusy):
		return http.StatusConflict, "another wallet operation is in progress"

	case errors.Is(err, domain.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	}

	// Wrapped causes above take precedence over the generic buckets.
	switch {
	case errors.Is(err, domain.ErrAuth):
		return http.StatusUnauthorized, "authentication failed"
	case errors.Is(err, domain.ErrSignup):
		return http.StatusBadRequest, "sign-up failed"
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
