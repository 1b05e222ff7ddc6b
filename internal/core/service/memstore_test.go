package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/obalifehub/lifehub/internal/core/domain"
	"github.com/obalifehub/lifehub/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory gateway: profiles, ledger and catalog behind one mutex, so each
// Apply call is all-or-nothing like the real store transactions.
// ---------------------------------------------------------------------------

type memStore struct {
	mu             sync.Mutex
	profiles       map[string]*domain.Profile
	txs            []domain.CoinTransaction
	activities     map[string]*domain.Activity
	rewards        map[string]*domain.Reward
	userActivities map[string]*domain.UserActivity
	claims         []domain.UserReward

	insertErr error // Insert fails with this
	findErr   error // FindByID fails with this
	applyErr  error // ApplyEarn/ApplySpend fail with this before writing
	findCalls int
}

func newMemStore() *memStore {
	return &memStore{
		profiles:       make(map[string]*domain.Profile),
		activities:     make(map[string]*domain.Activity),
		rewards:        make(map[string]*domain.Reward),
		userActivities: make(map[string]*domain.UserActivity),
	}
}

func (m *memStore) seedProfile(p *domain.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *p
	m.profiles[p.ID] = &clone
}

func (m *memStore) profile(id string) domain.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.profiles[id]
}

func (m *memStore) transactions() []domain.CoinTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CoinTransaction(nil), m.txs...)
}

func uaKey(userID, activityID string) string { return userID + "|" + activityID }

// ProfileRepository

func (m *memStore) Insert(_ context.Context, p *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	clone := *p
	m.profiles[p.ID] = &clone
	return nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	if m.findErr != nil {
		return nil, m.findErr
	}
	p, ok := m.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *memStore) Update(_ context.Context, id string, u domain.ProfileUpdate) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
	if u.AvatarURL != nil {
		p.AvatarURL = u.AvatarURL
	}
	if u.PreferredLanguage != nil {
		p.PreferredLanguage = *u.PreferredLanguage
	}
	if u.AccessibilityMode != nil {
		p.AccessibilityMode = *u.AccessibilityMode
	}
	if u.Role != nil {
		p.Role = *u.Role
	}
	clone := *p
	return &clone, nil
}

// LedgerRepository

func (m *memStore) ApplyEarn(_ context.Context, e ports.EarnEntry) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	p, ok := m.profiles[e.UserID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	key := uaKey(e.UserID, e.Activity.ID)
	if ua, ok := m.userActivities[key]; ok && ua.Completed {
		return nil, domain.ErrAlreadyCompleted
	}

	at := e.At
	m.userActivities[key] = &domain.UserActivity{
		ID: key, UserID: e.UserID, ActivityID: e.Activity.ID,
		Completed: true, Progress: 100, CompletedAt: &at, CreatedAt: at,
	}
	m.txs = append(m.txs, domain.CoinTransaction{
		ID: e.TransactionID, UserID: e.UserID, Amount: e.Activity.CoinReward,
		Type: domain.TxEarnActivity, Description: e.Description, CreatedAt: at,
	})
	p.CoinsBalance += e.Activity.CoinReward
	p.TotalCoinsEarned += e.Activity.CoinReward
	p.Level = domain.LevelFor(p.TotalCoinsEarned)
	clone := *p
	return &clone, nil
}

func (m *memStore) ApplySpend(_ context.Context, e ports.SpendEntry) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	p, ok := m.profiles[e.UserID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	if p.CoinsBalance < e.Reward.CoinCost {
		return nil, domain.ErrInsufficientBalance
	}
	r := m.rewards[e.Reward.ID]
	if r != nil && r.Stock != nil {
		if *r.Stock <= 0 {
			return nil, domain.ErrOutOfStock
		}
		left := *r.Stock - 1
		r.Stock = &left
	}

	p.CoinsBalance -= e.Reward.CoinCost
	m.txs = append(m.txs, domain.CoinTransaction{
		ID: e.TransactionID, UserID: e.UserID, Amount: -e.Reward.CoinCost,
		Type: domain.TxSpendReward, Description: e.Description, CreatedAt: e.At,
	})
	m.claims = append(m.claims, domain.UserReward{
		ID: e.ClaimID, UserID: e.UserID, RewardID: e.Reward.ID, ClaimedAt: e.At,
	})
	clone := *p
	return &clone, nil
}

func (m *memStore) Totals(_ context.Context, userID string) (domain.LedgerTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var t domain.LedgerTotals
	for _, tx := range m.txs {
		if tx.UserID != userID {
			continue
		}
		if tx.Amount > 0 {
			t.Earned += tx.Amount
		} else {
			t.Spent -= tx.Amount
		}
	}
	return t, nil
}

func (m *memStore) ResetCounters(_ context.Context, userID string, balance, totalEarned int64, level domain.Level) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	p.CoinsBalance = balance
	p.TotalCoinsEarned = totalEarned
	p.Level = level
	clone := *p
	return &clone, nil
}

func (m *memStore) Recent(_ context.Context, userID string, limit int) ([]domain.CoinTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CoinTransaction
	for i := len(m.txs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.txs[i].UserID == userID {
			out = append(out, m.txs[i])
		}
	}
	return out, nil
}

// CatalogRepository

func (m *memStore) FindActivity(_ context.Context, id string) (*domain.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.activities[id]
	if !ok {
		return nil, domain.ErrActivityNotFound
	}
	clone := *a
	return &clone, nil
}

func (m *memStore) FindReward(_ context.Context, id string) (*domain.Reward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rewards[id]
	if !ok {
		return nil, domain.ErrRewardNotFound
	}
	clone := *r
	return &clone, nil
}

func (m *memStore) ActiveActivities(_ context.Context) ([]domain.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Activity
	for _, a := range m.activities {
		if a.Active {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ActiveRewards(_ context.Context) ([]domain.Reward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Reward
	for _, r := range m.rewards {
		if r.Active {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) FindUserActivity(_ context.Context, userID, activityID string) (*domain.UserActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ua, ok := m.userActivities[uaKey(userID, activityID)]
	if !ok {
		return nil, nil
	}
	clone := *ua
	return &clone, nil
}

func (m *memStore) UserActivities(_ context.Context, userID string) ([]domain.UserActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.UserActivity
	for _, ua := range m.userActivities {
		if ua.UserID == userID {
			out = append(out, *ua)
		}
	}
	return out, nil
}

func (m *memStore) UserRewards(_ context.Context, userID string) ([]domain.UserReward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.UserReward
	for _, c := range m.claims {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Notifier
// ---------------------------------------------------------------------------

type stubNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
	// hold, when set, keeps SendWelcome waiting until it is closed.
	hold chan struct{}
}

func (n *stubNotifier) SendWelcome(ctx context.Context, toEmail, _ string) error {
	if n.hold != nil {
		select {
		case <-n.hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, toEmail)
	return nil
}

func (n *stubNotifier) sentTo() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}

// waitSent waits until want welcome emails were recorded.
func (n *stubNotifier) waitSent(t *testing.T, want int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		sent := n.sentTo()
		if len(sent) >= want {
			return sent
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d welcome emails, got %v", want, sent)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
