package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"hashrecipe/internal/metrics"
	"hashrecipe/internal/recipe"
)

// Manager is a registry of independent sessions.
type Manager struct {
	catalog  recipe.Catalog
	executor Executor
	opts     []Option

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a registry whose sessions share catalog and executor
// and are built with opts.
func NewManager(catalog recipe.Catalog, executor Executor, opts ...Option) *Manager {
	return &Manager{
		catalog:  catalog,
		executor: executor,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session. extra options apply after the manager's.
func (m *Manager) Create(extra ...Option) *Session {
	opts := append(append([]Option(nil), m.opts...), extra...)
	s := New(uuid.NewString(), m.catalog, m.executor, opts...)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	metrics.ActiveSessions.Inc()
	return s
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	return s, nil
}

// Delete ends a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	delete(m.sessions, id)
	metrics.ActiveSessions.Dec()
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
