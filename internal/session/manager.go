package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/freshmart/storefront/internal/cart"
	"github.com/freshmart/storefront/internal/checkout"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session: not found")

// Session is one browsing session's slice of the engine: its own cart store
// and its own checkout orchestrator. Nothing is shared across sessions.
type Session struct {
	ID       string
	Cart     *cart.Store
	Checkout *checkout.Orchestrator

	createdAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Factory builds the checkout orchestrator for a fresh session cart.
type Factory func(c *cart.Store) *checkout.Orchestrator

// Manager owns the live sessions. Carts are ephemeral by design: they live in
// memory for the session lifetime and are destroyed on expiry, never
// persisted.
type Manager struct {
	factory Factory
	ttl     time.Duration
	logger  *log.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(factory Factory, ttl time.Duration, logger *log.Logger) *Manager {
	return &Manager{
		factory:  factory,
		ttl:      ttl,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session with an empty cart.
func (m *Manager) Create() *Session {
	now := time.Now()
	c := cart.NewStore()
	s := &Session{
		ID:        uuid.NewString(),
		Cart:      c,
		Checkout:  m.factory(c),
		createdAt: now,
		lastSeen:  now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	return s
}

// Get returns the session for id and marks it as recently used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	s.touch(time.Now())
	return s, nil
}

// Destroy ends a session and discards its cart. Unknown ids are a no-op.
func (m *Manager) Destroy(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StartSweeper evicts sessions idle longer than the ttl until ctx is done.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				m.sweep(now)
			}
		}
	}()
}

func (m *Manager) sweep(now time.Time) {
	if m.ttl <= 0 {
		return
	}

	m.mu.Lock()
	var expired []string
	for id, s := range m.sessions {
		if now.Sub(s.idleSince()) > m.ttl {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if len(expired) > 0 {
		m.logger.Printf("expired %d idle session(s)", len(expired))
	}
}
