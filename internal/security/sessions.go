package security

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionStore issues and validates opaque login session tokens. Tokens
// live in memory only; restarting the process logs everyone out.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]session
	ttl      time.Duration
}

type session struct {
	userID  uuid.UUID
	expires time.Time
}

// NewSessionStore returns a store whose tokens expire after ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]session),
		ttl:      ttl,
	}
}

// Create issues a fresh token bound to a user.
func (s *SessionStore) Create(userID uuid.UUID) string {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session{userID: userID, expires: time.Now().Add(s.ttl)}
	return token
}

// Lookup resolves a token to the owning user id. Expired tokens are
// removed on access.
func (s *SessionStore) Lookup(token string) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return uuid.Nil, false
	}
	if time.Now().After(sess.expires) {
		delete(s.sessions, token)
		return uuid.Nil, false
	}
	return sess.userID, true
}

// Revoke deletes a token.
func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}
