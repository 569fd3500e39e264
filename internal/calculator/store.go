package calculator

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Session is one engine addressed by id. Events on a session are serialised
// through Do.
type Session struct {
	ID string

	mu     sync.Mutex
	engine *Engine
}

// Do runs fn with exclusive access to the session's engine.
func (s *Session) Do(fn func(*Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.engine)
}

// Snapshot returns the engine snapshot under the session lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}

// History returns the engine history under the session lock.
func (s *Session) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.History()
}

// Store keeps sessions in memory.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     []Option
}

// NewStore returns an empty store. opts are applied to every new engine.
func NewStore(opts ...Option) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		opts:     opts,
	}
}

// Create starts a session with the given settings.
func (st *Store) Create(settings Settings) (*Session, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	opts := append(append([]Option{}, st.opts...), WithSettings(settings))
	s := &Session{
		ID:     uuid.New().String(),
		engine: New(opts...),
	}

	st.mu.Lock()
	st.sessions[s.ID] = s
	n := len(st.sessions)
	st.mu.Unlock()

	activeSessions.Set(float64(n))
	return s, nil
}

// Get returns the session with id.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Delete removes the session with id.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	n := len(st.sessions)
	st.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	activeSessions.Set(float64(n))
	return nil
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
