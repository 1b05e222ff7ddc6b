package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/obalifehub/lifehub/internal/core/domain"
	"github.com/obalifehub/lifehub/internal/core/ports"
)

func TestKidsHandler_Activities(t *testing.T) {
	e := newEcho()
	reg, _ := newTestRegistry()
	s := signedIn(t, reg, "mom@example.com", "parent")

	catalog := &stubCatalog{
		activitiesFn: func(ctx context.Context, userID string) ([]ports.ActivityView, error) {
			return []ports.ActivityView{
				{Activity: domain.Activity{ID: "a1", Difficulty: domain.DifficultyBeginner, CoinReward: 5}, Completed: true, Progress: 100},
				{Activity: domain.Activity{ID: "a2", Difficulty: domain.DifficultyChampion, CoinReward: 10}},
			}, nil
		},
	}
	c, rec := sessionContext(e, httptest.NewRequest(http.MethodGet, "/v1/kids/activities", nil), s)
	if err := NewKidsHandler(&stubLedger{}, catalog).Activities(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp listActivitiesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Data) != 2 || !resp.Data[0].Completed || resp.Data[1].Difficulty != "champion" {
		t.Fatalf("unexpected activities: %+v", resp.Data)
	}
}

func TestKidsHandler_Complete(t *testing.T) {
	e := newEcho()
	reg, gw := newTestRegistry()
	s := signedIn(t, reg, "dad@example.com", "parent")

	ledger := &stubLedger{
		earnFn: func(ctx context.Context, in ports.EarnActivityInput) (*ports.LedgerResult, error) {
			if in.ActivityID != "a1" || in.UserID != s.UserID() {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &ports.LedgerResult{Profile: profileWith(gw, s, 15), Amount: 10}, nil
		},
	}
	c, rec := sessionContext(e, httptest.NewRequest(http.MethodPost, "/v1/kids/activities/a1/complete", nil), s)
	c.SetParamNames("id")
	c.SetParamValues("a1")

	if err := NewKidsHandler(ledger, &stubCatalog{}).Complete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["amount"] != float64(10) {
		t.Fatalf("unexpected amount: %v", resp["amount"])
	}
	if _, ok := resp["already_completed"]; ok {
		t.Fatalf("already_completed should be omitted on first completion")
	}
	if got := s.Snapshot().Profile.CoinsBalance; got != 15 {
		t.Fatalf("expected session balance 15, got %d", got)
	}
}

func TestKidsHandler_Complete_AlreadyDone(t *testing.T) {
	e := newEcho()
	reg, gw := newTestRegistry()
	s := signedIn(t, reg, "again@example.com", "parent")

	ledger := &stubLedger{
		earnFn: func(ctx context.Context, in ports.EarnActivityInput) (*ports.LedgerResult, error) {
			return &ports.LedgerResult{Profile: profileWith(gw, s, 5), AlreadyCompleted: true}, nil
		},
	}
	c, rec := sessionContext(e, httptest.NewRequest(http.MethodPost, "/", nil), s)
	if err := NewKidsHandler(ledger, &stubCatalog{}).Complete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp ledgerResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.AlreadyCompleted || resp.Amount != 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestKidsHandler_Complete_UnknownActivity(t *testing.T) {
	e := newEcho()
	reg, _ := newTestRegistry()
	s := signedIn(t, reg, "lost@example.com", "parent")

	ledger := &stubLedger{
		earnFn: func(ctx context.Context, in ports.EarnActivityInput) (*ports.LedgerResult, error) {
			return nil, domain.ErrActivityNotFound
		},
	}
	c, _ := sessionContext(e, httptest.NewRequest(http.MethodPost, "/", nil), s)
	if err := NewKidsHandler(ledger, &stubCatalog{}).Complete(c); !errors.Is(err, domain.ErrActivityNotFound) {
		t.Fatalf("expected ErrActivityNotFound, got %v", err)
	}
}
