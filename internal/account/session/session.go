package session

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/tradesmap/internal/account/domain"
	iddomain "github.com/smallbiznis/tradesmap/internal/identity/domain"
	profiledomain "github.com/smallbiznis/tradesmap/internal/profile/domain"
	"go.uber.org/zap"
)

type State string

const (
	StateSignedOut                State = "signed_out"
	StateAuthenticating           State = "authenticating"
	StateAuthenticated            State = "authenticated"
	StateSyncing                  State = "syncing"
	StateAuthenticatedWithProfile State = "authenticated_with_profile"
)

// Session holds the signed-in identity of one client and derives its current
// profile. The zero value is not usable; sessions come from a Manager.
type Session struct {
	id    string
	store profiledomain.Store
	log   *zap.Logger

	mu        sync.Mutex
	state     State
	prev      State
	identity  *iddomain.Identity
	pending   *iddomain.Redirect
	profile   *profiledomain.Profile
	watch     profiledomain.Subscription
	gen       uint64
	closed    bool
	subs      map[uint64]chan *profiledomain.Profile
	nextSubID uint64
	createdAt time.Time
}

func newSession(id string, store profiledomain.Store, log *zap.Logger, now time.Time) *Session {
	return &Session{
		id:        id,
		store:     store,
		log:       log.With(zap.String("session_id", id)),
		state:     StateSignedOut,
		subs:      make(map[uint64]chan *profiledomain.Profile),
		createdAt: now,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns a copy of the signed-in identity, or nil.
func (s *Session) Identity() *iddomain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// Profile returns the current profile, or nil.
func (s *Session) Profile() *profiledomain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyProfile(s.profile)
}

// BeginAuthentication moves to Authenticating. FailAuthentication undoes it.
func (s *Session) BeginAuthentication() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionNotFound
	}
	if s.state != StateAuthenticating {
		s.prev = s.state
	}
	s.state = StateAuthenticating
	return nil
}

func (s *Session) FailAuthentication() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateAuthenticating {
		s.state = s.prev
		s.pending = nil
	}
}

// BeginRedirect prepares for a federated sign-in. A session that already holds
// an identity keeps its state; only the pending redirect tracks the attempt.
func (s *Session) BeginRedirect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionNotFound
	}
	if s.identity != nil {
		return nil
	}
	if s.state != StateAuthenticating {
		s.prev = s.state
	}
	s.state = StateAuthenticating
	return nil
}

// AbandonPending drops the pending redirect when provider and state match it.
// A mismatched callback leaves the legitimate attempt in place.
func (s *Session) AbandonPending(provider iddomain.Provider, state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pendingMatchesLocked(provider, state) {
		return false
	}
	s.pending = nil
	if s.state == StateAuthenticating {
		s.state = s.prev
	}
	return true
}

// SetPending stores the redirect a provider callback must match.
func (s *Session) SetPending(redirect *iddomain.Redirect) {
	s.mu.Lock()
	s.pending = redirect
	s.mu.Unlock()
}

// TakePending returns and clears the pending redirect when state matches.
func (s *Session) TakePending(provider iddomain.Provider, state string) (*iddomain.Redirect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pendingMatchesLocked(provider, state) {
		return nil, domain.ErrInvalidState
	}
	pending := s.pending
	s.pending = nil
	return pending, nil
}

// HasPending reports whether a redirect sign-in is outstanding.
func (s *Session) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

func (s *Session) pendingMatchesLocked(provider iddomain.Provider, state string) bool {
	p := s.pending
	return p != nil && state != "" && p.State == state && p.Provider == provider
}

// SetIdentity records an identity-state change. The current profile is re-derived
// from the store and followed until the identity changes again.
func (s *Session) SetIdentity(ctx context.Context, identity iddomain.Identity) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionNotFound
	}
	s.gen++
	gen := s.gen
	s.identity = &identity
	s.pending = nil
	s.profile = nil
	s.state = StateAuthenticated
	s.prev = StateAuthenticated
	s.replaceWatchLocked(nil)
	s.broadcastLocked()
	s.mu.Unlock()

	sub, err := s.store.Watch(identity.UID)
	if err != nil {
		s.log.Warn("profile watch unavailable", zap.String("uid", identity.UID), zap.Error(err))
	}
	current, err := s.store.Get(ctx, identity.UID)
	if err != nil {
		s.log.Warn("failed to load profile", zap.String("uid", identity.UID), zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.closed {
		if sub != nil {
			sub.Close()
		}
		return nil
	}
	if sub != nil {
		s.replaceWatchLocked(sub)
		go s.follow(gen, sub)
	}
	if current != nil {
		s.applyProfileLocked(current)
	}
	return nil
}

func (s *Session) follow(gen uint64, sub profiledomain.Subscription) {
	for p := range sub.Updates() {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.applyProfileLocked(&p)
		s.mu.Unlock()
	}
}

func (s *Session) applyProfileLocked(p *profiledomain.Profile) {
	s.profile = copyProfile(p)
	if s.state == StateAuthenticated {
		s.state = StateAuthenticatedWithProfile
	}
	if s.prev == StateAuthenticated {
		s.prev = StateAuthenticatedWithProfile
	}
	s.broadcastLocked()
}

// BeginSync moves an authenticated session to Syncing.
func (s *Session) BeginSync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateAuthenticated, StateAuthenticatedWithProfile:
		s.prev = s.state
		s.state = StateSyncing
		return nil
	case StateSyncing:
		return nil
	default:
		return domain.ErrNotAuthenticated
	}
}

func (s *Session) FailSync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSyncing {
		s.state = s.prev
	}
}

// CompleteSync records the persisted profile.
func (s *Session) CompleteSync(p *profiledomain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSyncing {
		return
	}
	s.state = StateAuthenticatedWithProfile
	s.prev = StateAuthenticatedWithProfile
	if p != nil && s.identity != nil && p.UID == s.identity.UID {
		s.profile = copyProfile(p)
		s.broadcastLocked()
	}
}

// SignOut returns to SignedOut from any state.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signOutLocked()
}

func (s *Session) signOutLocked() {
	s.gen++
	s.identity = nil
	s.pending = nil
	s.state = StateSignedOut
	s.prev = StateSignedOut
	s.replaceWatchLocked(nil)
	if s.profile != nil {
		s.profile = nil
		s.broadcastLocked()
	}
}

// Subscribe streams the current profile, starting with the present value. A nil
// value means no profile. Slow readers only see the latest value.
func (s *Session) Subscribe() (<-chan *profiledomain.Profile, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan *profiledomain.Profile, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = ch
	ch <- copyProfile(s.profile)

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

// Close signs out and ends every stream.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.signOutLocked()
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Session) replaceWatchLocked(sub profiledomain.Subscription) {
	if s.watch != nil {
		s.watch.Close()
	}
	s.watch = sub
}

func (s *Session) broadcastLocked() {
	for _, ch := range s.subs {
		value := copyProfile(s.profile)
		select {
		case ch <- value:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- value
		}
	}
}

func copyProfile(p *profiledomain.Profile) *profiledomain.Profile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
