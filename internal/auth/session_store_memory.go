package auth

import (
	"context"
	"sync"
)

// NewInMemorySessionStore returns a SessionStore backed by an in-memory map.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]Session)}
}

// InMemorySessionStore implements SessionStore for tests and deployments
// without a database.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// Save persists the provided session record.
func (s *InMemorySessionStore) Save(_ context.Context, session Session) error {
	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()
	return nil
}

// Find retrieves a session by token.
func (s *InMemorySessionStore) Find(_ context.Context, token string) (Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

// Delete removes the session associated with the token.
func (s *InMemorySessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}

// Has reports whether a token exists. Useful for tests.
func (s *InMemorySessionStore) Has(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[token]
	return ok
}
