// Package session owns the per-user state of the support desk: one ticket
// history per session, created empty, discarded when the session ends.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comigor/support-agent/internal/history"
	"github.com/comigor/support-agent/internal/logger"
)

// DefaultIdleTimeout ends sessions nobody has touched for this long.
const DefaultIdleTimeout = 30 * time.Minute

// Session is one user's working context.
type Session struct {
	ID string

	mu       sync.Mutex
	store    history.Store
	lastSeen time.Time
}

// Do runs fn with exclusive access to the session's history, so a session
// handles one user action at a time.
func (s *Session) Do(fn func(history.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.store)
}

// Manager creates, resumes and ends sessions.
type Manager struct {
	backend     history.Backend
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option customises a Manager.
type Option func(*Manager)

// WithIdleTimeout sets how long an untouched session survives.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.idleTimeout = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager returns a Manager storing history in backend.
func NewManager(backend history.Backend, opts ...Option) *Manager {
	m := &Manager{
		backend:     backend,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		sessions:    make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start creates a session with an empty history.
func (m *Manager) Start() (*Session, error) {
	m.mu.Lock()
	expired := m.expireLocked()
	s, err := m.startLocked()
	m.mu.Unlock()

	discard(expired)
	return s, err
}

// Resume returns the live session with the given id, or a fresh one when the
// id is unknown or has expired. Resuming refreshes the idle timer.
func (m *Manager) Resume(id string) (*Session, error) {
	m.mu.Lock()
	expired := m.expireLocked()
	s, ok := m.sessions[id]
	var err error
	if ok {
		s.lastSeen = m.now()
	} else {
		s, err = m.startLocked()
	}
	m.mu.Unlock()

	discard(expired)
	return s, err
}

// End clears a session's history and forgets it. Ending an unknown session is a no-op.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	logger.L.Info("session ended", "session", id)
	return s.Do(func(store history.Store) error { return store.Clear() })
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) startLocked() (*Session, error) {
	id := uuid.NewString()
	store, err := m.backend.Open(id)
	if err != nil {
		return nil, err
	}
	s := &Session{ID: id, store: store, lastSeen: m.now()}
	m.sessions[id] = s
	logger.L.Info("session started", "session", id)
	return s, nil
}

// expireLocked removes idle sessions from the map and returns them.
func (m *Manager) expireLocked() []*Session {
	cutoff := m.now().Add(-m.idleTimeout)
	var expired []*Session
	for id, s := range m.sessions {
		if s.lastSeen.After(cutoff) {
			continue
		}
		delete(m.sessions, id)
		expired = append(expired, s)
	}
	return expired
}

// discard clears the history of sessions already removed from the manager.
func discard(sessions []*Session) {
	for _, s := range sessions {
		if err := s.Do(func(store history.Store) error { return store.Clear() }); err != nil {
			logger.L.Warn("failed to clear expired session", "session", s.ID, "error", err)
			continue
		}
		logger.L.Info("session expired", "session", s.ID)
	}
}
