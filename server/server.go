package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-finance-web/api"
	"github.com/jrsteele09/go-finance-web/internal/config"
	"github.com/jrsteele09/go-finance-web/router"
	"github.com/jrsteele09/go-finance-web/server/clientsession"
	"github.com/jrsteele09/go-finance-web/storage"
	"github.com/jrsteele09/go-finance-web/token"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env            string // Environment (e.g., "DEV", "PROD")
	mux            *http.ServeMux
	routes         []string
	config         config.Config
	router         *router.Router
	tokens         storage.Store // Backend all client session stores are scoped into
	clientSessions clientsession.Repo
	apiOptions     []api.Option
	now            func() time.Time

	pagesLock sync.Mutex
	pages     map[string]*page

	stopSweeper chan struct{}
	sweeperDone chan struct{}
	closeOnce   sync.Once
}

type Option func(*Server)

// WithAPIOptions passes options to every API client the server creates.
func WithAPIOptions(opts ...api.Option) Option {
	return func(s *Server) {
		s.apiOptions = append(s.apiOptions, opts...)
	}
}

// WithClock replaces the clock used for client session expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New builds the web front. tokens is the persisted token store; every
// client session gets its own namespace inside it.
func New(config config.Config, tokens storage.Store, clientSessions clientsession.Repo, opts ...Option) (*Server, error) {
	if tokens == nil {
		return nil, fmt.Errorf("[Server New] token store is required")
	}
	if clientSessions == nil {
		return nil, fmt.Errorf("[Server New] client session repo is required")
	}

	s := &Server{
		env:            config.GetEnv(),
		mux:            http.NewServeMux(),
		config:         config,
		tokens:         tokens,
		clientSessions: clientSessions,
		apiOptions:     []api.Option{api.WithTimeout(config.GetAPITimeout())},
		now:            time.Now,
		pages:          make(map[string]*page),
		stopSweeper:    make(chan struct{}),
		sweeperDone:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	r, err := router.New(router.DefaultRoutes(s.views()), s.isAuthenticated)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to build router: %w", err)
	}
	s.router = r

	s.initRoutes()
	s.logRoutes()
	go s.sweepClientSessions(sweepInterval(config.GetClientSessionMaxAge()))

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close stops the idle session sweeper.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopSweeper)
		<-s.sweeperDone
	})
	return nil
}

func (s *Server) Router() *router.Router {
	return s.router
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// isAuthenticated is the router's view of the client: a stored access token,
// optionally required to be unexpired.
func (s *Server) isAuthenticated(ctx context.Context) bool {
	cs := ClientSessionFromContext(ctx)
	if cs == nil {
		return false
	}
	if s.config.GetGuardRejectExpired() {
		return token.IsPresentAndUnexpired(ctx, cs.Store)
	}
	return token.IsPresent(ctx, cs.Store)
}

// SweepClientSessions drops client sessions idle for longer than the
// configured max age, together with their stored tokens and marker.
func (s *Server) SweepClientSessions(ctx context.Context) int {
	idle := s.clientSessions.DeleteIdle(s.now().Add(-s.config.GetClientSessionMaxAge()))
	for _, cs := range idle {
		s.discardClientSession(ctx, cs)
	}
	if len(idle) > 0 {
		log.Debug().Int("count", len(idle)).Msg("expired idle client sessions")
	}
	return len(idle)
}

func (s *Server) sweepClientSessions(interval time.Duration) {
	defer close(s.sweeperDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopSweeper:
			return
		case <-ticker.C:
			s.SweepClientSessions(context.Background())
		}
	}
}

func sweepInterval(maxAge time.Duration) time.Duration {
	interval := maxAge / 4
	if interval < time.Minute {
		return time.Minute
	}
	return interval
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}
