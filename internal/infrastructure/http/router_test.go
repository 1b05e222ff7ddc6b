package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/obalifehub/lifehub/internal/infrastructure/http/handlers"
)

func TestOpsRouter_Routes(t *testing.T) {
	e := NewOpsRouter(handlers.Check{Name: "redis", Ping: func(context.Context) error {
		return errors.New("connection refused")
	}})

	tests := []struct {
		path string
		want int
	}{
		{"/health", http.StatusOK},
		{"/health/ready", http.StatusServiceUnavailable},
		{"/metrics", http.StatusOK},
		{"/v1/me", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.want {
			t.Fatalf("GET %s: expected %d, got %d", tt.path, tt.want, rec.Code)
		}
	}
}
