// Package auth holds the client-side authentication session: the current
// user, a loading flag and the last error, plus the login, registration,
// profile and logout actions that keep them in step with the REST API.
package auth

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-finance-web/api"
	"github.com/jrsteele09/go-finance-web/storage"
	"github.com/jrsteele09/go-finance-web/token"
	"github.com/jrsteele09/go-finance-web/users"
	"github.com/rs/zerolog/log"
)

// APIClient is the part of the REST API the session talks to.
type APIClient interface {
	ObtainToken(ctx context.Context, email, password string) (token.Pair, error)
	Register(ctx context.Context, registration users.Registration) error
	Profile(ctx context.Context) (*users.Profile, error)
	UpdateProfile(ctx context.Context, update users.ProfileUpdate) (*users.Profile, error)
	ChangePassword(ctx context.Context, change users.PasswordChange) error
}

var _ APIClient = (*api.Client)(nil)

// State is a snapshot of the session as views see it.
type State struct {
	User         *users.Profile // nil when nobody is logged in
	Loading      bool           // An action is in flight
	Error        *Error         // Last action error, reset when an action starts
	ProfileError *Error         // Last profile fetch error, reset by a successful fetch
}

// Session is one client's authentication state. It is owned by whoever
// created it (a CLI run, a browser's client session, a test) and is safe for
// concurrent use. Concurrent actions are not coordinated: the last one to
// finish wins, as with double-submitted forms.
type Session struct {
	api   APIClient
	store storage.Store

	mu           sync.RWMutex
	state        State
	listeners    map[int]func(State)
	nextListener int
}

func NewSession(client APIClient, store storage.Store) *Session {
	return &Session{
		api:       client,
		store:     store,
		listeners: make(map[int]func(State)),
	}
}

// Login exchanges credentials for tokens, persists them, then fetches the
// profile. A failed profile fetch does not fail the login; it is reported in
// State().ProfileError and the returned Value is nil.
func (s *Session) Login(ctx context.Context, email, password string) ProfileResult {
	s.begin()

	pair, err := s.api.ObtainToken(ctx, email, password)
	if err != nil {
		e := NormaliseError(err, LoginFailedMessage)
		log.Info().Str("email", email).Str("kind", string(e.Kind)).Msg("Login rejected")
		s.finish(e)
		return Fail[*users.Profile](e)
	}

	if err := token.Save(ctx, s.store, pair); err != nil {
		log.Err(err).Msg("Failed to persist tokens")
		// A half-written pair would still satisfy the route guard
		if clearErr := token.Clear(ctx, s.store); clearErr != nil {
			log.Err(clearErr).Msg("Failed to remove partially persisted tokens")
		}
		e := storageError(err, LoginFailedMessage)
		s.finish(e)
		return Fail[*users.Profile](e)
	}

	profile := s.FetchProfile(ctx)
	s.finish(nil)
	return Ok(profile.Value)
}

// Register creates an account. The new user is not logged in.
func (s *Session) Register(ctx context.Context, registration users.Registration) Outcome {
	s.begin()

	if err := s.api.Register(ctx, registration); err != nil {
		e := NormaliseError(err, RegistrationFailedMessage)
		s.finish(e)
		return Fail[struct{}](e)
	}

	s.finish(nil)
	return Ok(struct{}{})
}

// FetchProfile loads the current user with whatever token is persisted. On
// failure the current user is left as it was and the error is kept in
// State().ProfileError.
func (s *Session) FetchProfile(ctx context.Context) ProfileResult {
	profile, err := s.api.Profile(ctx)
	if err != nil {
		e := NormaliseError(err, ProfileFailedMessage)
		log.Err(err).Msg("Failed to fetch profile")
		s.update(func(st *State) {
			st.ProfileError = e
		})
		return Fail[*users.Profile](e)
	}

	s.update(func(st *State) {
		st.User = profile
		st.ProfileError = nil
	})
	return Ok(cloneProfile(profile))
}

// UpdateProfile applies a partial update and replaces the current user with the result.
func (s *Session) UpdateProfile(ctx context.Context, update users.ProfileUpdate) ProfileResult {
	s.begin()

	profile, err := s.api.UpdateProfile(ctx, update)
	if err != nil {
		e := NormaliseError(err, ProfileUpdateFailedMessage)
		s.finish(e)
		return Fail[*users.Profile](e)
	}

	s.update(func(st *State) {
		st.User = profile
		st.Loading = false
	})
	return Ok(cloneProfile(profile))
}

func (s *Session) ChangePassword(ctx context.Context, change users.PasswordChange) Outcome {
	s.begin()

	if err := s.api.ChangePassword(ctx, change); err != nil {
		e := NormaliseError(err, PasswordChangeFailedMessage)
		s.finish(e)
		return Fail[struct{}](e)
	}

	s.finish(nil)
	return Ok(struct{}{})
}

// Logout forgets the user and removes both persisted tokens. The in-memory
// user is cleared even when the store fails; that failure is returned.
func (s *Session) Logout(ctx context.Context) error {
	err := token.Clear(ctx, s.store)

	s.update(func(st *State) {
		st.User = nil
		st.ProfileError = nil
	})

	if err != nil {
		log.Err(err).Msg("Failed to clear tokens on logout")
		return err
	}
	return nil
}

// IsAuthenticated reports whether a user profile is loaded.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User != nil
}

// HasToken reports whether an access token is persisted; this is what the route guard checks.
func (s *Session) HasToken(ctx context.Context) bool {
	return token.IsPresent(ctx, s.store)
}

func (s *Session) User() *users.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProfile(s.state.User)
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *Session) Store() storage.Store {
	return s.store
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned function removes the subscription.
func (s *Session) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Reset clears the in-memory state. Persisted tokens are left alone.
func (s *Session) Reset() {
	s.update(func(st *State) {
		*st = State{}
	})
}

func (s *Session) begin() {
	s.update(func(st *State) {
		st.Loading = true
		st.Error = nil
	})
}

func (s *Session) finish(err *Error) {
	s.update(func(st *State) {
		st.Loading = false
		if err != nil {
			st.Error = err
		}
	})
}

// update applies fn under the lock, then notifies listeners outside it.
func (s *Session) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.snapshot()
	listeners := make([]func(State), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

func (s *Session) snapshot() State {
	st := s.state
	st.User = cloneProfile(st.User)
	return st
}

func cloneProfile(p *users.Profile) *users.Profile {
	return p.Clone()
}
