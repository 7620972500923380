package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"tallyocr/internal/domain"
)

// SessionStore holds review sessions in memory. Sessions are working state
// for a single operator; only page metadata and submission attempts outlive
// the process.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*domain.Session
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uuid.UUID]*domain.Session)}
}

// Create registers a new empty session and returns it.
func (s *SessionStore) Create() *domain.Session {
	sess := &domain.Session{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session with the given id.
func (s *SessionStore) Get(id uuid.UUID) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

// Delete removes the session with the given id. Deleting an unknown id is a
// no-op.
func (s *SessionStore) Delete(id uuid.UUID) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}
