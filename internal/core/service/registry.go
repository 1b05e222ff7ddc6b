package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/obalifehub/lifehub/internal/core/domain"
	"github.com/obalifehub/lifehub/internal/core/ports"
	"github.com/obalifehub/lifehub/internal/pkg/metrics"
)

// SessionRegistry owns the server's sessions, keyed by the session id
// carried in bearer tokens, and routes profile changes to the sessions of
// the affected user.
type SessionRegistry struct {
	auth     ports.AuthGateway
	profiles ports.ProfileRepository
	notifier ports.Notifier
	log      zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	byUser   map[string]map[string]*Session
	// revoked holds signed-out session ids until their tokens expire.
	revoked    map[string]time.Time
	revokedTTL time.Duration
}

const defaultRevokedTTL = 24 * time.Hour

func NewSessionRegistry(auth ports.AuthGateway, profiles ports.ProfileRepository, notifier ports.Notifier, log zerolog.Logger) *SessionRegistry {
	return &SessionRegistry{
		auth:       auth,
		profiles:   profiles,
		notifier:   notifier,
		log:        log,
		sessions:   make(map[string]*Session),
		byUser:     make(map[string]map[string]*Session),
		revoked:    make(map[string]time.Time),
		revokedTTL: defaultRevokedTTL,
	}
}

// WithRevokedTTL sets how long a signed-out session id is refused. It should
// match the bearer token lifetime.
func (r *SessionRegistry) WithRevokedTTL(d time.Duration) *SessionRegistry {
	if d > 0 {
		r.revokedTTL = d
	}
	return r
}

// SignIn opens a new session for valid credentials.
func (r *SessionRegistry) SignIn(ctx context.Context, email, password string) (*Session, error) {
	s := r.newSession()
	if err := s.SignIn(ctx, email, password); err != nil {
		return nil, err
	}
	r.add(s)
	return s, nil
}

// SignUp creates an account and opens a session for it.
func (r *SessionRegistry) SignUp(ctx context.Context, email, password, fullName, role string) (*Session, error) {
	s := r.newSession()
	if err := s.SignUp(ctx, email, password, fullName, role); err != nil {
		return nil, err
	}
	r.add(s)
	return s, nil
}

// Resume returns the session with id sid, restoring it for identity when the
// server no longer holds it (restart or idle eviction). Signed-out ids fail
// with domain.ErrNotSignedIn.
func (r *SessionRegistry) Resume(ctx context.Context, sid string, identity *domain.Identity) (*Session, error) {
	r.mu.RLock()
	_, revoked := r.revoked[sid]
	s, ok := r.sessions[sid]
	r.mu.RUnlock()

	if revoked {
		return nil, domain.ErrNotSignedIn
	}
	if ok && s.UserID() == identity.ID {
		s.Touch()
		return s, nil
	}

	s = NewSession(sid, r.auth, r.profiles, r.notifier, r.log)
	s.Restore(ctx, identity)
	r.add(s)
	return s, nil
}

// Lookup returns a held session.
func (r *SessionRegistry) Lookup(sid string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sid]
	return s, ok
}

// CurrentProfile returns the enriched profile of session sid, or nil.
func (r *SessionRegistry) CurrentProfile(sid string) *domain.SmartProfile {
	s, ok := r.Lookup(sid)
	if !ok {
		return nil
	}
	return s.Snapshot().Profile
}

// SignOut signs the session out, forgets it and refuses the id from then on.
func (r *SessionRegistry) SignOut(sid string) {
	r.mu.Lock()
	s, ok := r.sessions[sid]
	if ok {
		r.removeLocked(s)
	}
	r.revoked[sid] = time.Now().Add(r.revokedTTL)
	r.mu.Unlock()

	if ok {
		s.SignOut()
		s.Close()
	}
}

// HandleProfileChanged delivers ev to every session of the target user.
func (r *SessionRegistry) HandleProfileChanged(ctx context.Context, ev domain.ProfileChanged) error {
	r.mu.RLock()
	targets := make([]*Session, 0, len(r.byUser[ev.UserID]))
	for _, s := range r.byUser[ev.UserID] {
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	delivery := "row"
	switch {
	case len(targets) == 0:
		delivery = "unrouted"
	case ev.Row == nil || ev.Kind == domain.ChangeDelete:
		delivery = "reload"
	}
	metrics.ProfileEventsTotal.WithLabelValues(ev.Source, delivery).Inc()

	for _, s := range targets {
		s.Apply(ctx, ev)
	}
	return nil
}

// Sweep evicts sessions idle for longer than maxIdle and returns how many
// were removed.
func (r *SessionRegistry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	now := time.Now()

	r.mu.Lock()
	var idle []*Session
	for _, s := range r.sessions {
		if s.IdleSince().Before(cutoff) {
			r.removeLocked(s)
			idle = append(idle, s)
		}
	}
	for sid, until := range r.revoked {
		if now.After(until) {
			delete(r.revoked, sid)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
	if len(idle) > 0 {
		r.log.Debug().Int("evicted", len(idle)).Msg("idle sessions swept")
	}
	return len(idle)
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (r *SessionRegistry) StartSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	if interval <= 0 || maxIdle <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep(maxIdle)
			}
		}
	}()
}

// Len is the number of held sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *SessionRegistry) newSession() *Session {
	return NewSession(uuid.NewString(), r.auth, r.profiles, r.notifier, r.log)
}

func (r *SessionRegistry) add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.sessions[s.ID()]; ok && old != s {
		r.removeLocked(old)
		defer old.Close()
	}
	r.sessions[s.ID()] = s
	uid := s.UserID()
	if r.byUser[uid] == nil {
		r.byUser[uid] = make(map[string]*Session)
	}
	r.byUser[uid][s.ID()] = s
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
}

func (r *SessionRegistry) removeLocked(s *Session) {
	delete(r.sessions, s.ID())
	for uid, set := range r.byUser {
		if _, ok := set[s.ID()]; ok {
			delete(set, s.ID())
			if len(set) == 0 {
				delete(r.byUser, uid)
			}
		}
	}
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
}
