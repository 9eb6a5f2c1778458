package session

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/tradesmap/internal/clock"
	"github.com/smallbiznis/tradesmap/internal/config"
	profiledomain "github.com/smallbiznis/tradesmap/internal/profile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultTTL      = 24 * time.Hour
	defaultCapacity = 10000
)

type Params struct {
	fx.In

	Config config.Config
	Store  profiledomain.Store
	Clock  clock.Clock
	Log    *zap.Logger
}

// Manager owns every live session. Evicted or expired sessions are closed.
type Manager struct {
	sessions *expirable.LRU[string, *Session]
	store    profiledomain.Store
	clock    clock.Clock
	log      *zap.Logger
}

func NewManager(p Params) *Manager {
	ttl := p.Config.Session.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	capacity := p.Config.Session.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	m := &Manager{
		store: p.Store,
		clock: p.Clock,
		log:   p.Log.Named("account.session"),
	}
	m.sessions = expirable.NewLRU[string, *Session](capacity, func(_ string, s *Session) {
		s.Close()
	}, ttl)
	return m
}

// Create starts a signed-out session with a fresh ULID.
func (m *Manager) Create() *Session {
	id := ulid.Make().String()
	s := newSession(id, m.store, m.log, m.clock.Now())
	m.sessions.Add(id, s)
	return s
}

func (m *Manager) Get(id string) (*Session, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false
	}
	return m.sessions.Get(id)
}

// Remove closes and forgets the session.
func (m *Manager) Remove(id string) {
	m.sessions.Remove(id)
}

func (m *Manager) Len() int {
	return m.sessions.Len()
}

// Close ends all sessions.
func (m *Manager) Close() {
	m.sessions.Purge()
}
