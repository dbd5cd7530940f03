// Package router maps paths to views and gates every navigation on whether
// the client is authenticated.
package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// MaxRedirects bounds the redirects followed by one navigation.
const MaxRedirects = 10

var (
	ErrRouteNotFound = errors.New("route not found")
	ErrRedirectLoop  = errors.New("too many redirects")
	ErrInvalidRoute  = errors.New("invalid route")
	ErrNoView        = errors.New("route has no view")
)

// AuthFunc reports whether the client making the navigation is authenticated.
type AuthFunc func(ctx context.Context) bool

// Navigation is the outcome of a successful navigation.
type Navigation struct {
	Requested string   // Path as asked for
	Route     Route    // Route finally landed on
	Redirects []string // Paths redirected to, in order
}

func (n Navigation) Redirected() bool {
	return len(n.Redirects) > 0
}

type Router struct {
	routes          []Route
	byPath          map[string]int
	isAuthenticated AuthFunc

	viewsLock sync.Mutex
	views     map[string]http.Handler
}

func New(routes []Route, isAuthenticated AuthFunc) (*Router, error) {
	if isAuthenticated == nil {
		return nil, fmt.Errorf("%w: authentication check is required", ErrInvalidRoute)
	}

	r := &Router{
		routes:          make([]Route, 0, len(routes)),
		byPath:          make(map[string]int, len(routes)),
		isAuthenticated: isAuthenticated,
		views:           make(map[string]http.Handler),
	}

	for _, route := range routes {
		route.Path = normalisePath(route.Path)
		if err := validateRoute(route); err != nil {
			return nil, err
		}
		if _, exists := r.byPath[route.Path]; exists {
			return nil, fmt.Errorf("%w: duplicate path %q", ErrInvalidRoute, route.Path)
		}
		r.byPath[route.Path] = len(r.routes)
		r.routes = append(r.routes, route)
	}

	for _, route := range r.routes {
		if route.Redirect == "" {
			continue
		}
		if _, ok := r.byPath[normalisePath(route.Redirect)]; !ok {
			return nil, fmt.Errorf("%w: %q redirects to unknown path %q", ErrInvalidRoute, route.Path, route.Redirect)
		}
	}

	return r, nil
}

func validateRoute(route Route) error {
	switch {
	case !strings.HasPrefix(route.Path, "/"):
		return fmt.Errorf("%w: path %q must be absolute", ErrInvalidRoute, route.Path)
	case route.Redirect != "" && route.View != nil:
		return fmt.Errorf("%w: %q has both a redirect and a view", ErrInvalidRoute, route.Path)
	case route.Redirect == "" && route.View == nil:
		return fmt.Errorf("%w: %q has neither a redirect nor a view", ErrInvalidRoute, route.Path)
	case route.Meta.RequiresAuth && route.Meta.RequiresGuest:
		return fmt.Errorf("%w: %q cannot require both auth and guest", ErrInvalidRoute, route.Path)
	}
	return nil
}

// Routes returns the route table in declaration order.
func (r *Router) Routes() []Route {
	routes := make([]Route, len(r.routes))
	copy(routes, r.routes)
	return routes
}

// Resolve finds the route for path. "/login/" and "/login" are the same route.
func (r *Router) Resolve(path string) (Route, bool) {
	i, ok := r.byPath[normalisePath(path)]
	if !ok {
		return Route{}, false
	}
	return r.routes[i], true
}

// Navigate resolves path, follows static redirects and runs the guard on the
// route it lands on. A guard redirect starts a new navigation, which is
// guarded in turn.
func (r *Router) Navigate(ctx context.Context, path string) (Navigation, error) {
	nav := Navigation{Requested: path}
	current := path

	for hops := 0; ; hops++ {
		if hops > MaxRedirects {
			return nav, fmt.Errorf("%w: navigating to %q", ErrRedirectLoop, path)
		}

		route, ok := r.Resolve(current)
		if !ok {
			return nav, fmt.Errorf("%w: %q", ErrRouteNotFound, current)
		}

		if route.Redirect != "" {
			current = route.Redirect
			nav.Redirects = append(nav.Redirects, current)
			continue
		}

		decision := Guard(route, r.isAuthenticated(ctx))
		if !decision.Proceed() {
			current = decision.RedirectTo
			nav.Redirects = append(nav.Redirects, current)
			continue
		}

		nav.Route = route
		return nav, nil
	}
}

// View loads the route's view on first use.
func (r *Router) View(route Route) (http.Handler, error) {
	if route.View == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoView, route.Path)
	}

	r.viewsLock.Lock()
	defer r.viewsLock.Unlock()

	if view, ok := r.views[route.Path]; ok {
		return view, nil
	}

	view, err := route.View()
	if err != nil {
		return nil, fmt.Errorf("[router View] load %q: %w", route.Path, err)
	}
	r.views[route.Path] = view
	return view, nil
}

func normalisePath(path string) string {
	if path == "" {
		return PathRoot
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return PathRoot
		}
	}
	return path
}
