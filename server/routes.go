package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-finance-web/router"
	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() {
	// Every page in the route table, guarded by the router
	s.RegisterRouteHandler("GET /", ChainMiddleware(s.NavigationHandler(), s.HTMLMiddleWare(s.ClientSessionMiddleware)...))

	// Form actions. Each is guarded like the page it belongs to.
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare(s.ClientSessionMiddleware, s.RequireNavigation(router.PathLogin))...))
	s.RegisterRouteHandler("POST "+RouteRegister, ChainMiddleware(s.RegisterSubmissionHandler(), s.HTMLMiddleWare(s.ClientSessionMiddleware, s.RequireNavigation(router.PathRegister))...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare(s.ClientSessionMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteProfile, ChainMiddleware(s.ProfileUpdateHandler(), s.HTMLMiddleWare(s.ClientSessionMiddleware, s.RequireNavigation(router.PathDashboard))...))
	s.RegisterRouteHandler("POST "+RouteProfilePassword, ChainMiddleware(s.ChangePasswordHandler(), s.HTMLMiddleWare(s.ClientSessionMiddleware, s.RequireNavigation(router.PathDashboard))...))
	s.RegisterRouteHandler("POST "+RouteTransactions, ChainMiddleware(s.CreateTransactionHandler(), s.HTMLMiddleWare(s.ClientSessionMiddleware, s.RequireNavigation(router.PathTransactions))...))

	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.RecoverMiddleware))
	s.RegisterRouteHandler("GET "+RouteStaticCSS, ChainMiddleware(s.serveFileHandler(), s.HTMLMiddleWare(s.CacheMiddleware)...))
}

// NavigationHandler serves the page the router lands on for the request
// path, redirecting when the route table or the guard sends the client
// elsewhere.
func (s *Server) NavigationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nav, err := s.router.Navigate(r.Context(), r.URL.Path)
		switch {
		case errors.Is(err, router.ErrRouteNotFound):
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		case err != nil:
			log.Err(err).Str("path", r.URL.Path).Msg("[Server NavigationHandler] navigation failed")
			http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
			return
		}

		if nav.Redirected() {
			redirectSuccess(w, r, nav.Route.Path)
			return
		}

		view, err := s.router.View(nav.Route)
		if err != nil {
			log.Err(err).Str("path", nav.Route.Path).Msg("[Server NavigationHandler] failed to load view")
			http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
			return
		}
		view.ServeHTTP(w, r)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := strings.TrimPrefix(r.URL.Path, "/")
		if filePath == "" {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		err := StreamFile(w, r, filePath)
		if err != nil {
			logError(r.Method, filePath, err)
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
	}
}

func logError(method, path string, err error) {
	log.Error().Msgf("[%-19s] %s %s", colourMethod(method), path, Red+err.Error()+ResetColor)
}
