package server

import (
	"html/template"
	"net/http"
	"sort"
	"strings"

	"github.com/jrsteele09/go-finance-web/auth"
	"github.com/jrsteele09/go-finance-web/finance"
	"github.com/jrsteele09/go-finance-web/router"
	"github.com/jrsteele09/go-finance-web/users"
	"github.com/rs/zerolog/log"
)

// PageData is the template model shared by every page
type PageData struct {
	AppName       string
	Title         string
	Path          string
	Nav           []NavLink
	Authenticated bool
	User          *users.Profile
	Loading       bool
	Error         string
	FieldErrors   map[string][]string
	ProfileError  string
	Notice        string
	Form          map[string]string // Submitted values echoed back, never passwords

	// Finance data, loaded by the page that shows it
	DataErrors   []string
	Stats        *finance.DashboardStats
	Filter       finance.TransactionFilter
	Transactions []finance.Transaction
	Categories   []finance.Category
	Budgets      []finance.Budget
	Progress     []finance.BudgetProgress
}

type NavLink struct {
	Name   string
	Path   string
	Active bool
}

type page struct {
	name  string
	title string
	tmpl  *template.Template
}

// page parses a page template once and caches it.
func (s *Server) page(name, title string) (*page, error) {
	s.pagesLock.Lock()
	defer s.pagesLock.Unlock()

	if p, ok := s.pages[name]; ok {
		return p, nil
	}
	tmpl, err := ParseTemplate(name)
	if err != nil {
		return nil, err
	}
	p := &page{name: name, title: title, tmpl: tmpl}
	s.pages[name] = p
	return p, nil
}

func (s *Server) views() router.Views {
	return router.Views{
		Login:        s.pageView("login.html", "Login", false, nil),
		Register:     s.pageView("register.html", "Register", false, nil),
		Dashboard:    s.pageView("dashboard.html", "Dashboard", true, s.loadDashboard),
		Transactions: s.pageView("transactions.html", "Transactions", true, s.loadTransactions),
		Budgets:      s.pageView("budgets.html", "Budgets", true, s.loadBudgets),
	}
}

// pageView is the router view for a page. Pages that show the user fetch
// the profile when the session does not hold one yet; load, when set, adds
// the page's finance data.
func (s *Server) pageView(name, title string, showsUser bool, load pageLoader) router.ViewLoader {
	return func() (http.Handler, error) {
		p, err := s.page(name, title)
		if err != nil {
			return nil, err
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cs := ClientSessionFromContext(r.Context())
			if showsUser && cs != nil && cs.Auth.User() == nil {
				cs.Auth.FetchProfile(r.Context())
			}
			data := s.pageData(r, p)
			if load != nil && cs != nil {
				load(r, cs, &data)
			}
			s.renderPage(w, p, http.StatusOK, data)
		}), nil
	}
}

func (s *Server) pageData(r *http.Request, p *page) PageData {
	query := r.URL.Query()
	data := PageData{
		AppName: s.config.GetAppName(),
		Title:   p.title,
		Path:    r.URL.Path,
		Error:   query.Get("error"),
		Notice:  query.Get("notice"),
		Form:    map[string]string{"email": query.Get("email")},
	}

	if cs := ClientSessionFromContext(r.Context()); cs != nil {
		state := cs.Auth.State()
		data.User = state.User
		data.Loading = state.Loading
		if state.ProfileError != nil {
			data.ProfileError = state.ProfileError.Message
		}
		data.Authenticated = s.isAuthenticated(r.Context())
	}
	data.Nav = s.navLinks(data.Authenticated, r.URL.Path)
	return data
}

// navLinks lists the pages the guard would let the client open.
func (s *Server) navLinks(authenticated bool, current string) []NavLink {
	current = strings.TrimRight(current, "/")
	var links []NavLink
	for _, route := range s.router.Routes() {
		if route.Redirect != "" {
			continue
		}
		if (route.Meta.RequiresAuth && !authenticated) || (route.Meta.RequiresGuest && authenticated) {
			continue
		}
		links = append(links, NavLink{Name: route.Name, Path: route.Path, Active: route.Path == current})
	}
	return links
}

func (s *Server) renderPage(w http.ResponseWriter, p *page, status int, data PageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := p.tmpl.Execute(w, data); err != nil {
		log.Err(err).Str("page", p.name).Msg("[Server renderPage] failed to render page")
	}
}

// statusForError maps a session error onto the status of a re-rendered form.
func statusForError(err *auth.Error) int {
	switch err.Kind {
	case auth.KindValidation:
		return http.StatusBadRequest
	case auth.KindUnauthorized, auth.KindUnauthenticated:
		return http.StatusUnauthorized
	case auth.KindNetwork, auth.KindServer, auth.KindDecode:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorSummary is the error message followed by any per-field messages,
// for places that can only show one line.
func errorSummary(err *auth.Error) string {
	if len(err.FieldErrors) == 0 {
		return err.Message
	}
	fields := make([]string, 0, len(err.FieldErrors))
	for field := range err.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := []string{err.Message}
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(err.FieldErrors[field], " "))
	}
	return strings.Join(parts, "; ")
}
