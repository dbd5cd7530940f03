package clientsession

import (
	"fmt"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-finance-web/internal/errors"
)

// InMemoryRepo is an in-memory implementation of Repo
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]*Session // sessionID -> Session
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a new in-memory client session repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]*Session),
	}
}

// Upsert creates or replaces a client session
func (r *InMemoryRepo) Upsert(session *Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = session
	return nil
}

// Get retrieves a client session by ID
func (r *InMemoryRepo) Get(sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	return session, nil
}

// Delete removes a client session
func (r *InMemoryRepo) Delete(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID) // Already doesn't exist, no error
	return nil
}

func (r *InMemoryRepo) DeleteIdle(before time.Time) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var idle []*Session
	for id, session := range r.sessions {
		if session.LastSeen().Before(before) {
			idle = append(idle, session)
			delete(r.sessions, id)
		}
	}
	return idle
}

func (r *InMemoryRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
