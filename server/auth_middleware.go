package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-finance-web/api"
	"github.com/jrsteele09/go-finance-web/auth"
	apperrors "github.com/jrsteele09/go-finance-web/internal/errors"
	"github.com/jrsteele09/go-finance-web/server/clientsession"
	"github.com/jrsteele09/go-finance-web/storage"
	"github.com/jrsteele09/go-finance-web/token"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyClientSession stores the request's *clientsession.Session
	ContextKeyClientSession ContextKey = "client_session"
)

// ClientSessionFromContext returns the client session attached by
// ClientSessionMiddleware, or nil.
func ClientSessionFromContext(ctx context.Context) *clientsession.Session {
	cs, _ := ctx.Value(ContextKeyClientSession).(*clientsession.Session)
	return cs
}

// ClientSessionMiddleware attaches the browser's client session to the
// request, creating one (and its cookie) on first contact.
func (s *Server) ClientSessionMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs, created, err := s.clientSessionFor(r)
		if err != nil {
			log.Err(err).Msg("[Server ClientSessionMiddleware] failed to create client session")
			http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
			return
		}
		if created {
			s.SetClientSessionCookie(w, cs.ID, r)
		}
		cs.Touch(s.now())
		tagClientSession(w, cs.ID)

		ctx := context.WithValue(r.Context(), ContextKeyClientSession, cs)
		next(w, r.WithContext(ctx))
	}
}

// RequireNavigation guards an action with the same rules as the page at
// path: when the router would send the client elsewhere, so does the action.
func (s *Server) RequireNavigation(path string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			nav, err := s.router.Navigate(r.Context(), path)
			if err != nil {
				log.Err(err).Str("path", path).Msg("[Server RequireNavigation] navigation failed")
				http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
				return
			}
			if nav.Redirected() {
				redirectSuccess(w, r, nav.Route.Path)
				return
			}
			next(w, r)
		}
	}
}

// issuedKey marks a namespace as belonging to an id this server minted at
// login. Only marked ids are reattached after a restart or a sweep.
const issuedKey = "client_session_issued"

// clientSessionFor finds the session named by the request cookie. An id the
// registry no longer knows is reattached only when its namespace carries the
// issued marker; any other id is replaced by a fresh one.
func (s *Server) clientSessionFor(r *http.Request) (*clientsession.Session, bool, error) {
	id := clientSessionID(r)
	if id != "" {
		if cs, err := s.clientSessions.Get(id); err == nil {
			return cs, false, nil
		} else if !apperrors.Is(err, apperrors.ErrSessionNotFound) {
			return nil, false, err
		}
	}

	created := !s.wasIssued(r.Context(), id)
	if created {
		id = uuid.NewString()
	}

	cs := s.newClientSession(id)
	if err := s.clientSessions.Upsert(cs); err != nil {
		return nil, false, apperrors.Wrapf(err, "[Server clientSessionFor] upsert %s", id)
	}

	if !created && cs.Auth.HasToken(r.Context()) {
		if result := cs.Auth.FetchProfile(r.Context()); !result.OK {
			log.Warn().Str("client_session", id).Str("error", result.Err.Message).Msg("reattached session could not fetch profile")
		}
	}
	return cs, created, nil
}

func (s *Server) wasIssued(ctx context.Context, id string) bool {
	if _, err := uuid.Parse(id); err != nil {
		return false
	}
	_, ok, err := storage.Scoped(s.tokens, id).Get(ctx, issuedKey)
	if err != nil {
		log.Err(err).Str("client_session", id).Msg("[Server wasIssued] failed to read marker")
		return false
	}
	return ok
}

// issueClientSession mints a session under a new id and marks its namespace.
// It is not registered until the caller upserts it.
func (s *Server) issueClientSession(ctx context.Context) (*clientsession.Session, error) {
	cs := s.newClientSession(uuid.NewString())
	if err := cs.Store.Set(ctx, issuedKey, s.now().UTC().Format(time.RFC3339)); err != nil {
		return nil, apperrors.Wrapf(err, "[Server issueClientSession] mark %s", cs.ID)
	}
	return cs, nil
}

// forgetClientSession drops a session from the registry together with its
// tokens and marker, so its id can never be reattached.
func (s *Server) forgetClientSession(ctx context.Context, cs *clientsession.Session) {
	if err := s.clientSessions.Delete(cs.ID); err != nil {
		log.Err(err).Str("client_session", cs.ID).Msg("[Server forgetClientSession] failed to delete session")
	}
	s.discardClientSession(ctx, cs)
}

// discardClientSession removes what a session persisted.
func (s *Server) discardClientSession(ctx context.Context, cs *clientsession.Session) {
	if err := token.Clear(ctx, cs.Store); err != nil {
		log.Err(err).Str("client_session", cs.ID).Msg("[Server discardClientSession] failed to clear tokens")
	}
	if err := cs.Store.Remove(ctx, issuedKey); err != nil {
		log.Err(err).Str("client_session", cs.ID).Msg("[Server discardClientSession] failed to remove marker")
	}
}

func (s *Server) newClientSession(id string) *clientsession.Session {
	store := storage.Scoped(s.tokens, id)
	client := api.New(s.config.GetAPIBaseURL(), token.NewStoreTokenSource(store), s.apiOptions...)
	authSession := auth.NewSession(client, store)
	authSession.Subscribe(logStateChange(id))
	return clientsession.New(id, authSession, client, store, s.now())
}

// logStateChange traces a client session's auth state at debug level.
func logStateChange(id string) func(auth.State) {
	return func(st auth.State) {
		event := log.Debug().
			Str("client_session", id).
			Bool("authenticated", st.User != nil).
			Bool("loading", st.Loading)
		if st.Error != nil {
			event = event.Str("error", string(st.Error.Kind))
		}
		if st.ProfileError != nil {
			event = event.Str("profile_error", string(st.ProfileError.Kind))
		}
		event.Msg("auth state changed")
	}
}
