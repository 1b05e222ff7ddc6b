package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/obalifehub/lifehub/internal/api/middleware"
	"github.com/obalifehub/lifehub/internal/core/domain"
	"github.com/obalifehub/lifehub/internal/core/ports"
	"github.com/obalifehub/lifehub/internal/core/service"
)

// fakeGateway is an in-memory auth gateway, profile store and token issuer.
type fakeGateway struct {
	mu        sync.Mutex
	passwords map[string]string // email -> password
	ids       map[string]string // email -> id
	profiles  map[string]*domain.Profile
	tokenErr  error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		passwords: make(map[string]string),
		ids:       make(map[string]string),
		profiles:  make(map[string]*domain.Profile),
	}
}

func (g *fakeGateway) SignUp(_ context.Context, email, password string) (*domain.Identity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.ids[email]; ok {
		return nil, domain.ErrIdentityExists
	}
	id := "user-" + strings.SplitN(email, "@", 2)[0]
	g.ids[email] = id
	g.passwords[email] = password
	return &domain.Identity{ID: id, Email: email}, nil
}

func (g *fakeGateway) SignIn(_ context.Context, email, password string) (*domain.Identity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if pw, ok := g.passwords[email]; !ok || pw != password {
		return nil, domain.ErrInvalidCredentials
	}
	return &domain.Identity{ID: g.ids[email], Email: email}, nil
}

func (g *fakeGateway) DeleteIdentity(_ context.Context, id string) error { return nil }

func (g *fakeGateway) Insert(_ context.Context, p *domain.Profile) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	clone := *p
	g.profiles[p.ID] = &clone
	return nil
}

func (g *fakeGateway) FindByID(_ context.Context, id string) (*domain.Profile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	clone := *p
	return &clone, nil
}

func (g *fakeGateway) Update(_ context.Context, id string, u domain.ProfileUpdate) (*domain.Profile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
	if u.PreferredLanguage != nil {
		p.PreferredLanguage = *u.PreferredLanguage
	}
	clone := *p
	return &clone, nil
}

func (g *fakeGateway) IssueToken(identity *domain.Identity, sessionID string) (string, error) {
	if g.tokenErr != nil {
		return "", g.tokenErr
	}
	return "tok-" + sessionID, nil
}

func newTestRegistry() (*service.SessionRegistry, *fakeGateway) {
	gw := newFakeGateway()
	return service.NewSessionRegistry(gw, gw, nil, zerolog.Nop()), gw
}

// signedIn opens a session for a fresh account with role.
func signedIn(t *testing.T, reg *service.SessionRegistry, email, role string) *service.Session {
	t.Helper()
	s, err := reg.SignUp(context.Background(), email, "secret1", "Test User", role)
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	return s
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

// sessionContext builds an echo context as the Auth and Session middleware
// would leave it.
func sessionContext(e *echo.Echo, req *http.Request, s *service.Session) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if s != nil {
		c.Set(middleware.KeySessionID, s.ID())
		c.Set(middleware.KeyUserID, s.UserID())
		c.Set(middleware.KeySession, s)
	}
	return c, rec
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

// stubLedger and stubCatalog are function-field stubs of the services.

type stubLedger struct {
	earnFn      func(ctx context.Context, in ports.EarnActivityInput) (*ports.LedgerResult, error)
	redeemFn    func(ctx context.Context, in ports.RedeemRewardInput) (*ports.LedgerResult, error)
	reconcileFn func(ctx context.Context, userID string) (*domain.Profile, error)
	historyFn   func(ctx context.Context, userID string, limit int) ([]domain.CoinTransaction, error)
}

func (s *stubLedger) EarnActivity(ctx context.Context, in ports.EarnActivityInput) (*ports.LedgerResult, error) {
	return s.earnFn(ctx, in)
}

func (s *stubLedger) RedeemReward(ctx context.Context, in ports.RedeemRewardInput) (*ports.LedgerResult, error) {
	return s.redeemFn(ctx, in)
}

func (s *stubLedger) Reconcile(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.reconcileFn(ctx, userID)
}

func (s *stubLedger) History(ctx context.Context, userID string, limit int) ([]domain.CoinTransaction, error) {
	return s.historyFn(ctx, userID, limit)
}

type stubCatalog struct {
	activitiesFn func(ctx context.Context, userID string) ([]ports.ActivityView, error)
	rewardsFn    func(ctx context.Context) ([]domain.Reward, error)
	claimsFn     func(ctx context.Context, userID string) ([]domain.UserReward, error)
}

func (s *stubCatalog) Activities(ctx context.Context, userID string) ([]ports.ActivityView, error) {
	return s.activitiesFn(ctx, userID)
}

func (s *stubCatalog) Rewards(ctx context.Context) ([]domain.Reward, error) {
	return s.rewardsFn(ctx)
}

func (s *stubCatalog) Claims(ctx context.Context, userID string) ([]domain.UserReward, error) {
	return s.claimsFn(ctx, userID)
}

// profileWith returns the stored profile of s's user with balance set.
func profileWith(gw *fakeGateway, s *service.Session, balance int64) *domain.Profile {
	p, _ := gw.FindByID(context.Background(), s.UserID())
	p.CoinsBalance = balance
	p.TotalCoinsEarned = balance
	p.UpdatedAt = time.Now()
	return p
}
