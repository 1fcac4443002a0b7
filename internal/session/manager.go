// Package session keeps per-conversation shopping state in memory: the cart
// and the message history. Nothing survives a restart.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/kalambet/shopper/internal/chat"
	"github.com/kalambet/shopper/internal/shop"
)

// Session is one conversation. Cart and History are guarded by Lock; a
// dialogue turn holds the lock for its whole duration.
type Session struct {
	ID string

	mu      sync.Mutex
	Cart    *shop.Cart
	History []chat.Message

	// lastUsed is guarded by the owning Manager's mutex.
	lastUsed time.Time
}

// NewSession returns a detached session with an empty cart. It is not
// tracked by any Manager.
func NewSession(id string) *Session {
	if id == "" {
		id = shortuuid.New()
	}
	return &Session{ID: id, Cart: &shop.Cart{}}
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Manager owns the live sessions. It is safe for concurrent use.
type Manager struct {
	clock Clock
	ttl   time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager that evicts sessions idle for longer than ttl.
// A zero ttl disables eviction.
func NewManager(ttl time.Duration) *Manager {
	return NewManagerWithClock(ttl, realClock{})
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(ttl time.Duration, clock Clock) *Manager {
	return &Manager{
		clock:    clock,
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Get returns the live session with the given id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if ok {
		s.lastUsed = m.clock.Now()
	}
	return s, ok
}

// GetOrCreate returns the session with the given id, creating it when it is
// unknown. An empty id always creates a session with a fresh id.
func (m *Manager) GetOrCreate(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" {
		if s, ok := m.sessions[id]; ok {
			s.lastUsed = m.clock.Now()
			return s
		}
	} else {
		id = shortuuid.New()
	}

	s := NewSession(id)
	s.lastUsed = m.clock.Now()
	m.sessions[id] = s
	slog.Debug("session created", "session", id)
	return s
}

// Reset clears the cart and history of a session, keeping its id. It
// reports false when the session does not exist.
func (m *Manager) Reset(id string) bool {
	s, ok := m.Get(id)
	if !ok {
		return false
	}
	s.Lock()
	defer s.Unlock()
	s.Cart.Clear()
	s.History = nil
	return true
}

// Delete removes a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Evict removes sessions idle for longer than the TTL and returns how many
// were removed.
func (m *Manager) Evict() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.clock.Now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.lastUsed.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Run evicts idle sessions every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Evict(); n > 0 {
				slog.Info("evicted idle sessions", "count", n, "live", m.Len())
			}
		}
	}
}
