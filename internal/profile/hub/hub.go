package hub

import (
	"errors"
	"strings"
	"sync"

	"github.com/smallbiznis/tradesmap/internal/profile/domain"
)

const DefaultSubscriberBuffer = 16

var (
	ErrHubUnavailable = errors.New("hub_unavailable")
	ErrInvalidUID     = errors.New("invalid_uid")
)

// Hub fans out persisted profiles to per-uid watchers. Slow watchers drop updates.
type Hub struct {
	mu               sync.RWMutex
	streams          map[string]*stream
	subscriberBuffer int
}

type stream struct {
	mu     sync.Mutex
	subs   map[uint64]chan domain.Profile
	nextID uint64
}

type Subscription struct {
	hub  *Hub
	uid  string
	id   uint64
	ch   chan domain.Profile
	once sync.Once
}

var _ domain.Subscription = (*Subscription)(nil)

func New() *Hub {
	return &Hub{
		streams:          make(map[string]*stream),
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

func (h *Hub) Publish(uid string, profile domain.Profile) {
	if h == nil {
		return
	}
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return
	}
	h.mu.RLock()
	s := h.streams[uid]
	h.mu.RUnlock()
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- profile:
		default:
		}
	}
}

func (h *Hub) Subscribe(uid string) (*Subscription, error) {
	if h == nil {
		return nil, ErrHubUnavailable
	}
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, ErrInvalidUID
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.streams[uid]
	if s == nil {
		s = &stream{subs: make(map[uint64]chan domain.Profile)}
		h.streams[uid] = s
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	ch := make(chan domain.Profile, h.subscriberBuffer)
	s.subs[id] = ch
	s.mu.Unlock()

	return &Subscription{hub: h, uid: uid, id: id, ch: ch}, nil
}

// Watchers reports how many subscriptions are open for uid.
func (h *Hub) Watchers(uid string) int {
	h.mu.RLock()
	s := h.streams[uid]
	h.mu.RUnlock()
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (h *Hub) unsubscribe(uid string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.streams[uid]
	if s == nil {
		return
	}
	s.mu.Lock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
	empty := len(s.subs) == 0
	s.mu.Unlock()
	if empty {
		delete(h.streams, uid)
	}
}

func (s *Subscription) Updates() <-chan domain.Profile {
	if s == nil {
		return nil
	}
	return s.ch
}

// Close stops delivery and closes the Updates channel.
func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.uid, s.id)
	})
}
