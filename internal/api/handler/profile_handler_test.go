package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/obalifehub/lifehub/internal/api/middleware"
	"github.com/obalifehub/lifehub/internal/core/domain"
)

func TestProfileHandler_Me(t *testing.T) {
	e := newEcho()
	reg, _ := newTestRegistry()
	s := signedIn(t, reg, "kid@example.com", "child")

	c, rec := sessionContext(e, httptest.NewRequest(http.MethodGet, "/v1/me", nil), s)
	if err := NewProfileHandler().Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp meResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.State != "authenticated" || resp.Profile == nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !resp.Profile.ChildSafe || resp.Profile.KidsEnabled {
		t.Fatalf("unexpected capabilities: %+v", resp.Profile.Capabilities)
	}
	if resp.Profile.ReferralCode == "" || resp.Profile.LevelProgress.Next != "silver" {
		t.Fatalf("unexpected derived fields: %+v", resp.Profile)
	}
}

func TestProfileHandler_Me_NoSession(t *testing.T) {
	e := newEcho()
	c, _ := sessionContext(e, httptest.NewRequest(http.MethodGet, "/v1/me", nil), nil)
	if code := httpStatus(t, NewProfileHandler().Me(c)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestProfileHandler_Update(t *testing.T) {
	e := newEcho()
	reg, _ := newTestRegistry()
	s := signedIn(t, reg, "mom@example.com", "parent")
	h := NewProfileHandler()

	c, rec := sessionContext(e, jsonRequest(http.MethodPatch, "/v1/me", `{"full_name":"Mother","preferred_language":"az"}`), s)
	if err := h.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp profileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.FullName != "Mother" || resp.PreferredLanguage != "az" || !resp.KidsEnabled {
		t.Fatalf("unexpected profile: %+v", resp)
	}
	if got := s.Snapshot().Profile.FullName; got != "Mother" {
		t.Fatalf("session not updated: %s", got)
	}

	c, _ = sessionContext(e, jsonRequest(http.MethodPatch, "/v1/me", `{"preferred_language":"xx"}`), s)
	if err := h.Update(c); !errors.Is(err, domain.ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}

	c, _ = sessionContext(e, jsonRequest(http.MethodPatch, "/v1/me", `{"avatar_url":"not a url"}`), s)
	if code := httpStatus(t, h.Update(c)); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}

	long := `{"avatar_url":"https://cdn.example.com/` + strings.Repeat("a", 8000) + `.png"}`
	c, _ = sessionContext(e, jsonRequest(http.MethodPatch, "/v1/me", long), s)
	if code := httpStatus(t, h.Update(c)); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for oversized avatar url, got %d", code)
	}
}

func TestProfileHandler_Reload(t *testing.T) {
	e := newEcho()
	reg, gw := newTestRegistry()
	s := signedIn(t, reg, "saver@example.com", "senior")

	gw.mu.Lock()
	gw.profiles[s.UserID()].CoinsBalance = 42
	gw.mu.Unlock()

	c, rec := sessionContext(e, httptest.NewRequest(http.MethodPost, "/v1/me/reload", nil), s)
	if err := NewProfileHandler().Reload(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp meResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Profile == nil || resp.Profile.CoinsBalance != 42 {
		t.Fatalf("expected reloaded balance, got %+v", resp.Profile)
	}
}

// streamRecorder is a ResponseRecorder safe to read while a handler writes.
type streamRecorder struct {
	mu sync.Mutex
	*httptest.ResponseRecorder
}

func (r *streamRecorder) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(b)
}

func (r *streamRecorder) WriteHeader(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ResponseRecorder.WriteHeader(code)
}

func (r *streamRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ResponseRecorder.Flush()
}

func (r *streamRecorder) events() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Count(r.Body.String(), "event: profile")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestProfileHandler_Stream(t *testing.T) {
	e := newEcho()
	reg, _ := newTestRegistry()
	s := signedIn(t, reg, "live@example.com", "parent")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/v1/me/stream", nil).WithContext(ctx)
	rec := &streamRecorder{ResponseRecorder: httptest.NewRecorder()}
	c := e.NewContext(req, rec)
	c.Set(middleware.KeySession, s)

	done := make(chan error, 1)
	go func() { done <- NewProfileHandler().Stream(c) }()

	waitFor(t, func() bool { return rec.events() >= 1 })

	name := "Renamed"
	if _, err := s.UpdateProfile(context.Background(), domain.ProfileUpdate{FullName: &name}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	waitFor(t, func() bool { return rec.events() >= 2 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("stream did not stop")
	}

	body := rec.Body.String()
	if !strings.Contains(body, `"full_name":"Renamed"`) {
		t.Fatalf("expected renamed snapshot in stream, got %s", body)
	}
	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
}

func TestProfileHandler_Stream_EndsOnSignOut(t *testing.T) {
	e := newEcho()
	reg, _ := newTestRegistry()
	s := signedIn(t, reg, "leaver@example.com", "child")

	rec := &streamRecorder{ResponseRecorder: httptest.NewRecorder()}
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/me/stream", nil), rec)
	c.Set(middleware.KeySession, s)

	done := make(chan error, 1)
	go func() { done <- NewProfileHandler().Stream(c) }()
	waitFor(t, func() bool { return rec.events() >= 1 })

	reg.SignOut(s.ID())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("stream did not end after sign-out")
	}
}
