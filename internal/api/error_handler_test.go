package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/obalifehub/lifehub/internal/core/domain"
)

func TestHTTPErrorHandler_StatusCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"bad credentials", fmt.Errorf("%w: %w", domain.ErrAuth, domain.ErrInvalidCredentials), http.StatusUnauthorized},
		{"auth gateway down", fmt.Errorf("%w: %w", domain.ErrAuth, domain.ErrGatewayUnavailable), http.StatusServiceUnavailable},
		{"duplicate email", fmt.Errorf("%w: %w", domain.ErrSignup, domain.ErrIdentityExists), http.StatusConflict},
		{"invalid role", fmt.Errorf("%w: %w", domain.ErrSignup, domain.ErrInvalidRole), http.StatusBadRequest},
		{"plain signup", fmt.Errorf("%w: boom", domain.ErrSignup), http.StatusBadRequest},
		{"insufficient", domain.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{"out of stock", domain.ErrOutOfStock, http.StatusConflict},
		{"busy", domain.ErrLedgerBusy, http.StatusConflict},
		{"reward missing", domain.ErrRewardNotFound, http.StatusNotFound},
		{"activity missing", domain.ErrActivityNotFound, http.StatusNotFound},
		{"signed out", domain.ErrNotSignedIn, http.StatusUnauthorized},
		{"echo error", echo.NewHTTPError(http.StatusForbidden, "nope"), http.StatusForbidden},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	h := NewHTTPErrorHandler(zerolog.Nop())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			h(tc.err, c)

			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error == "" {
				t.Fatalf("expected error envelope, got %q", rec.Body.String())
			}
		})
	}
}

func TestHTTPErrorHandler_HidesInternalCause(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	NewHTTPErrorHandler(zerolog.Nop())(errors.New("password=hunter2"), c)

	var body errorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error != "internal server error" {
		t.Fatalf("expected generic message, got %q", body.Error)
	}
}
