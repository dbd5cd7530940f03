package clientsession

import (
	"sync"
	"time"

	"github.com/jrsteele09/go-finance-web/api"
	"github.com/jrsteele09/go-finance-web/auth"
	"github.com/jrsteele09/go-finance-web/storage"
)

// Session is one browser's state on the web front: its auth session, the
// API client carrying its token and the namespaced token store behind both.
type Session struct {
	ID    string
	Auth  *auth.Session
	API   *api.Client
	Store storage.Store

	CreatedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

func New(id string, authSession *auth.Session, client *api.Client, store storage.Store, now time.Time) *Session {
	return &Session{
		ID:        id,
		Auth:      authSession,
		API:       client,
		Store:     store,
		CreatedAt: now,
		lastSeen:  now,
	}
}

// Touch records activity at t.
func (s *Session) Touch(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.After(s.lastSeen) {
		s.lastSeen = t
	}
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

type Repo interface {
	Upsert(session *Session) error
	Get(sessionID string) (*Session, error)
	Delete(sessionID string) error
	// DeleteIdle removes and returns the sessions not seen since before.
	DeleteIdle(before time.Time) []*Session
	Count() int
}
