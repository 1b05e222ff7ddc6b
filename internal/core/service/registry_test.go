package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/obalifehub/lifehub/internal/core/domain"
)

func newTestRegistry() (*SessionRegistry, *AuthService, *memStore) {
	store := newMemStore()
	auth := NewAuthService(newStubIdentityRepo(), "secret", time.Hour)
	return NewSessionRegistry(auth, store, nil, zerolog.Nop()), auth, store
}

func TestRegistry_SignUpAndSignIn(t *testing.T) {
	reg, _, _ := newTestRegistry()
	ctx := context.Background()

	s1, err := reg.SignUp(ctx, "kid@example.com", "secret1", "Kid", "child")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	s2, err := reg.SignIn(ctx, "kid@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if s1.ID() == s2.ID() {
		t.Fatalf("expected distinct session ids")
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", reg.Len())
	}
	if p := reg.CurrentProfile(s2.ID()); p == nil || !p.Capabilities.ChildSafe {
		t.Fatalf("unexpected current profile: %+v", p)
	}
}

func TestRegistry_FailedSignInNotRegistered(t *testing.T) {
	reg, _, _ := newTestRegistry()
	if _, err := reg.SignIn(context.Background(), "none@example.com", "secret1"); !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected no session registered")
	}
}

func TestRegistry_HandleProfileChanged_RoutesToUserSessions(t *testing.T) {
	reg, _, store := newTestRegistry()
	ctx := context.Background()

	a, _ := reg.SignUp(ctx, "p@example.com", "secret1", "Parent", "parent")
	b, _ := reg.SignIn(ctx, "p@example.com", "secret1")
	c, _ := reg.SignUp(ctx, "other@example.com", "secret1", "Other", "senior")

	row := store.profile(a.UserID())
	row.CoinsBalance = 30
	if err := reg.HandleProfileChanged(ctx, domain.ProfileChanged{UserID: row.ID, Kind: domain.ChangeUpdate, Row: &row, Source: "test"}); err != nil {
		t.Fatalf("HandleProfileChanged: %v", err)
	}

	for _, s := range []*Session{a, b} {
		if got := s.Snapshot().Profile.CoinsBalance; got != 30 {
			t.Fatalf("session %s: expected balance 30, got %d", s.ID(), got)
		}
	}
	if got := c.Snapshot().Profile.CoinsBalance; got != 0 {
		t.Fatalf("unrelated session changed: %d", got)
	}
}

func TestRegistry_Resume(t *testing.T) {
	reg, auth, store := newTestRegistry()
	ctx := context.Background()

	identity, _ := auth.SignUp(ctx, "back@example.com", "secret1")
	_ = store.Insert(ctx, domain.NewProfile(identity.ID, identity.Email, "Back", domain.RoleParent, "fam", time.Now()))

	s, err := reg.Resume(ctx, "sid-from-token", identity)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if s.ID() != "sid-from-token" {
		t.Fatalf("expected session id from token, got %s", s.ID())
	}
	if p := s.Snapshot().Profile; p == nil || !p.Capabilities.KidsEnabled {
		t.Fatalf("expected restored parent profile, got %+v", p)
	}
	if again, _ := reg.Resume(ctx, "sid-from-token", identity); again != s {
		t.Fatalf("expected held session to be returned")
	}
}

func TestRegistry_SignOut(t *testing.T) {
	reg, _, _ := newTestRegistry()
	s, _ := reg.SignUp(context.Background(), "bye@example.com", "secret1", "Bye", "parent")

	reg.SignOut(s.ID())
	reg.SignOut(s.ID())

	if _, ok := reg.Lookup(s.ID()); ok {
		t.Fatalf("expected session removed")
	}
	if s.Snapshot().State != StateUnauthenticated {
		t.Fatalf("expected session signed out")
	}
	if _, err := reg.Resume(context.Background(), s.ID(), &domain.Identity{ID: "bye"}); !errors.Is(err, domain.ErrNotSignedIn) {
		t.Fatalf("expected signed-out id refused, got %v", err)
	}
	if err := reg.HandleProfileChanged(context.Background(), domain.ProfileChanged{UserID: "x", Source: "test"}); err != nil {
		t.Fatalf("unrouted event should not fail: %v", err)
	}
}

func TestRegistry_Sweep(t *testing.T) {
	reg, _, _ := newTestRegistry()
	ctx := context.Background()
	idle, _ := reg.SignUp(ctx, "idle@example.com", "secret1", "Idle", "parent")
	busy, _ := reg.SignUp(ctx, "busy@example.com", "secret1", "Busy", "parent")

	idle.mu.Lock()
	idle.lastSeen = time.Now().Add(-time.Hour)
	idle.mu.Unlock()
	busy.Touch()

	if n := reg.Sweep(30 * time.Minute); n != 1 {
		t.Fatalf("expected 1 evicted, got %d", n)
	}
	if _, ok := reg.Lookup(idle.ID()); ok {
		t.Fatalf("expected idle session evicted")
	}
	if _, ok := reg.Lookup(busy.ID()); !ok {
		t.Fatalf("expected busy session kept")
	}
}
