package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ahagelberg/Yassh/config"
	"github.com/ahagelberg/Yassh/ssh"
)

// Manager tracks the live sessions opened from stored profiles.
type Manager struct {
	store *config.Store

	mu   sync.Mutex
	open map[uuid.UUID]*Session
}

// NewManager returns a manager over the given profile store.
func NewManager(store *config.Store) *Manager {
	return &Manager{store: store, open: make(map[uuid.UUID]*Session)}
}

// Open dials the stored profile and returns the live session. Opening an
// ID that is already open returns the existing session.
func (m *Manager) Open(id uuid.UUID, cols, rows int, opts ssh.Options) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.open[id]; ok {
		return s, nil
	}
	cfg, ok := m.store.Session(id)
	if !ok {
		return nil, errors.Errorf("no stored session %s", id)
	}
	cfg.ApplySSHConfig()
	if cfg.Host == "" {
		return nil, errors.Errorf("session %q has no host", cfg.Name)
	}
	opts.Cols, opts.Rows = cols, rows
	s := New(cfg, ssh.Dial(cfg, opts), cols, rows)
	m.open[id] = s
	m.reap(id, s)
	return s, nil
}

// OpenLocal starts the user's shell in a local session, tracked under the
// profile's ID.
func (m *Manager) OpenLocal(cfg config.Session, cols, rows int) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.open[cfg.ID]; ok {
		return s, nil
	}
	shell, err := StartLocalShell("", cols, rows)
	if err != nil {
		return nil, errors.Wrap(err, "starting local shell")
	}
	s := New(cfg, shell, cols, rows)
	m.open[cfg.ID] = s
	m.reap(cfg.ID, s)
	return s, nil
}

// reap drops the session from the open set once its transport ends.
func (m *Manager) reap(id uuid.UUID, s *Session) {
	go func() {
		<-s.Done()
		m.mu.Lock()
		if m.open[id] == s {
			delete(m.open, id)
		}
		m.mu.Unlock()
	}()
}

// Get returns the live session for an ID, if open.
func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.open[id]
	return s, ok
}

// OpenIDs returns the IDs of all live sessions.
func (m *Manager) OpenIDs() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(m.open))
	for id := range m.open {
		ids = append(ids, id)
	}
	return ids
}

// Close disconnects one session.
func (m *Manager) Close(id uuid.UUID) {
	if s, ok := m.Get(id); ok {
		s.Close()
	}
}

// CloseAll disconnects every live session and waits for them to end.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.open))
	for _, s := range m.open {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
	for _, s := range sessions {
		<-s.Done()
	}
}
