package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/obalifehub/lifehub/internal/core/domain"
	"github.com/obalifehub/lifehub/internal/core/ports"
	"github.com/obalifehub/lifehub/internal/pkg/metrics"
)

const welcomeTimeout = 10 * time.Second

// SessionState is the lifecycle position of a Session.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateLoading
	StateAuthenticated
	StateUnauthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "uninitialized"
	}
}

// Snapshot is a consistent copy of a session's state. Profile is nil while
// loading and when the profile row could not be read; a non-nil User with a
// nil Profile means "signed in, profile unavailable", not "no account".
type Snapshot struct {
	State   SessionState
	User    *domain.Identity
	Profile *domain.SmartProfile
}

// Ticket pins the signed-in user at the start of an operation so its result
// can be dropped if the session changed hands in the meantime.
type Ticket struct {
	userID string
	epoch  uint64
}

// UserID is the user the ticket was issued for.
func (t Ticket) UserID() string { return t.userID }

// Session holds who is signed in and their enriched profile, kept in step
// with the gateway. All mutation goes through its methods.
type Session struct {
	id       string
	auth     ports.AuthGateway
	profiles ports.ProfileRepository
	notifier ports.Notifier
	log      zerolog.Logger

	mu       sync.Mutex
	state    SessionState
	user     *domain.Identity
	profile  *domain.SmartProfile
	epoch    uint64
	lastSeen time.Time
	subs     map[uint64]chan Snapshot
	nextSub  uint64
}

// NewSession returns an uninitialized session. notifier may be nil.
func NewSession(id string, auth ports.AuthGateway, profiles ports.ProfileRepository, notifier ports.Notifier, log zerolog.Logger) *Session {
	return &Session{
		id:       id,
		auth:     auth,
		profiles: profiles,
		notifier: notifier,
		log:      log.With().Str("session_id", id).Logger(),
		state:    StateUninitialized,
		lastSeen: time.Now(),
		subs:     make(map[uint64]chan Snapshot),
	}
}

// ID returns the session identifier carried in bearer tokens.
func (s *Session) ID() string { return s.id }

// SignIn verifies credentials with the gateway and loads the profile.
// Credential failures are returned wrapped in domain.ErrAuth and leave any
// previous sign-in untouched.
func (s *Session) SignIn(ctx context.Context, email, password string) error {
	prev := s.enterLoading()

	identity, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		s.leaveLoading(prev)
		return fmt.Errorf("%w: %w", domain.ErrAuth, err)
	}

	s.load(ctx, s.bind(identity))
	return nil
}

// SignUp creates an identity and its single profile row, then loads it. If
// the profile insert fails the identity is deleted again.
func (s *Session) SignUp(ctx context.Context, email, password, fullName, role string) error {
	r, ok := domain.ParseRole(role)
	if !ok {
		return fmt.Errorf("%w: %w", domain.ErrSignup, domain.ErrInvalidRole)
	}

	prev := s.enterLoading()

	identity, err := s.auth.SignUp(ctx, email, password)
	if err != nil {
		s.leaveLoading(prev)
		return fmt.Errorf("%w: %w", domain.ErrSignup, err)
	}

	profile := domain.NewProfile(identity.ID, identity.Email, strings.TrimSpace(fullName), r, uuid.NewString(), time.Now().UTC())
	if err := s.profiles.Insert(ctx, profile); err != nil {
		if delErr := s.auth.DeleteIdentity(ctx, identity.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("user_id", identity.ID).Msg("failed to roll back identity after profile insert failure")
		}
		s.leaveLoading(prev)
		return fmt.Errorf("%w: create profile: %w", domain.ErrSignup, err)
	}

	s.load(ctx, s.bind(identity))
	metrics.SignupsTotal.WithLabelValues(string(r)).Inc()

	s.sendWelcome(ctx, identity, profile.FullName)
	return nil
}

// sendWelcome mails the new user in the background.
func (s *Session) sendWelcome(ctx context.Context, identity *domain.Identity, name string) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), welcomeTimeout)
	go func() {
		defer cancel()
		if err := s.notifier.SendWelcome(ctx, identity.Email, name); err != nil {
			s.log.Warn().Err(err).Str("user_id", identity.ID).Msg("welcome email not sent")
		}
	}()
}

// Restore resumes a session for an identity already proven by a bearer
// token, as on application start with a stored session.
func (s *Session) Restore(ctx context.Context, identity *domain.Identity) {
	s.enterLoading()
	s.load(ctx, s.bind(identity))
}

// SignOut clears user and profile. Calling it again is a no-op.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateUnauthenticated && s.user == nil {
		return
	}
	s.user = nil
	s.profile = nil
	s.epoch++
	s.state = StateUnauthenticated
	s.publishLocked()
}

// ReloadProfile re-reads the profile row and re-derives capabilities. It
// does nothing when no one is signed in.
func (s *Session) ReloadProfile(ctx context.Context) {
	t, ok := s.Begin()
	if !ok {
		return
	}
	s.load(ctx, t)
}

// Apply handles a row-level change notification. Events for any other user
// are ignored; events without a row trigger a reload. A row older than the
// held profile is dropped.
func (s *Session) Apply(ctx context.Context, ev domain.ProfileChanged) {
	s.mu.Lock()
	if s.user == nil || s.user.ID != ev.UserID {
		s.mu.Unlock()
		return
	}
	if ev.Row != nil && ev.Kind != domain.ChangeDelete {
		if s.setProfileLocked(ev.Row) {
			s.state = StateAuthenticated
			s.publishLocked()
		} else {
			s.log.Debug().Str("source", ev.Source).Time("row_updated_at", ev.Row.UpdatedAt).Msg("stale profile row ignored")
		}
		s.mu.Unlock()
		return
	}
	t := Ticket{userID: s.user.ID, epoch: s.epoch}
	s.mu.Unlock()

	s.load(ctx, t)
}

// UpdateProfile writes the editable profile fields and applies the stored
// row.
func (s *Session) UpdateProfile(ctx context.Context, u domain.ProfileUpdate) (*domain.SmartProfile, error) {
	if err := validateProfileUpdate(u); err != nil {
		return nil, err
	}

	t, ok := s.Begin()
	if !ok {
		return nil, domain.ErrNotSignedIn
	}

	row, err := s.profiles.Update(ctx, t.userID, u)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	sp := domain.Enrich(*row)
	if !s.Commit(t, row) {
		return nil, domain.ErrNotSignedIn
	}
	return &sp, nil
}

// Begin returns a ticket for the signed-in user.
func (s *Session) Begin() (Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return Ticket{}, false
	}
	return Ticket{userID: s.user.ID, epoch: s.epoch}, true
}

// Commit applies a profile row produced by an operation started with t. It
// reports false and changes nothing if the user signed out or another user
// signed in since. A row older than the held profile is not applied.
func (s *Session) Commit(t Ticket, row *domain.Profile) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(t) {
		return false
	}
	if row != nil && s.setProfileLocked(row) {
		s.state = StateAuthenticated
		s.publishLocked()
	}
	return true
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// UserID returns the signed-in user id, or "".
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// Subscribe returns a channel receiving a snapshot after every state change,
// starting with the current one. Slow readers only see the latest snapshot.
// The returned func unsubscribes and closes the channel.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, 1)
	ch <- s.snapshotLocked()
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Touch records activity for idle eviction.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// IdleSince returns the last time the session was touched.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Close drops every subscriber.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// load fetches the profile for t and applies it if t is still current.
// Gateway errors degrade to a nil profile.
func (s *Session) load(ctx context.Context, t Ticket) {
	row, err := s.profiles.FindByID(ctx, t.userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", t.userID).Msg("profile load failed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(t) {
		return
	}
	if row == nil {
		s.profile = nil
	} else {
		s.setProfileLocked(row)
	}
	s.state = StateAuthenticated
	s.publishLocked()
}

// setProfileLocked replaces the held profile with row unless row is older.
func (s *Session) setProfileLocked(row *domain.Profile) bool {
	if s.profile != nil && row.UpdatedAt.Before(s.profile.UpdatedAt) {
		return false
	}
	sp := domain.Enrich(*row)
	s.profile = &sp
	return true
}

func (s *Session) bind(identity *domain.Identity) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := *identity
	s.user = &id
	s.profile = nil
	s.epoch++
	s.lastSeen = time.Now()
	return Ticket{userID: id.ID, epoch: s.epoch}
}

func (s *Session) enterLoading() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	s.state = StateLoading
	s.publishLocked()
	return prev
}

// leaveLoading restores the state after a failed sign-in or sign-up.
func (s *Session) leaveLoading(prev SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user != nil && prev == StateAuthenticated {
		s.state = StateAuthenticated
	} else {
		s.state = StateUnauthenticated
	}
	s.publishLocked()
}

func (s *Session) currentLocked(t Ticket) bool {
	return s.user != nil && s.user.ID == t.userID && s.epoch == t.epoch
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	if s.profile != nil {
		p := *s.profile
		snap.Profile = &p
	}
	return snap
}

// publishLocked hands the latest snapshot to every subscriber, replacing an
// unread older one.
func (s *Session) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func validateProfileUpdate(u domain.ProfileUpdate) error {
	if u.Empty() {
		return fmt.Errorf("%w: nothing to update", domain.ErrInvalidProfile)
	}
	if u.FullName != nil && strings.TrimSpace(*u.FullName) == "" {
		return fmt.Errorf("%w: full name cannot be empty", domain.ErrInvalidProfile)
	}
	if u.AvatarURL != nil && len(*u.AvatarURL) > domain.MaxAvatarURLLen {
		return fmt.Errorf("%w: avatar url longer than %d bytes", domain.ErrInvalidProfile, domain.MaxAvatarURLLen)
	}
	if u.PreferredLanguage != nil && !domain.ValidLanguage(*u.PreferredLanguage) {
		return fmt.Errorf("%w: unsupported language %q", domain.ErrInvalidProfile, *u.PreferredLanguage)
	}
	if u.Role != nil {
		if _, ok := domain.ParseRole(string(*u.Role)); !ok {
			return fmt.Errorf("%w: %w", domain.ErrInvalidProfile, domain.ErrInvalidRole)
		}
	}
	return nil
}
