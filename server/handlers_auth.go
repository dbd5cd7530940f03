package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-finance-web/auth"
	"github.com/jrsteele09/go-finance-web/router"
	"github.com/jrsteele09/go-finance-web/users"
	"github.com/rs/zerolog/log"
)

// RegistrationSuccessNotice is shown on the login page after registering
const RegistrationSuccessNotice = "Registration successful. Please log in."

// LoginSubmissionHandler logs in under a freshly issued client session and
// sends it to the dashboard, or back to the login page with the error and
// the email. The session the browser arrived with is forgotten on success,
// so an id known before login never carries the tokens.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, router.PathLogin, "Invalid form submission")
			return
		}
		previous := ClientSessionFromContext(r.Context())
		email := strings.TrimSpace(r.FormValue("email"))

		cs, err := s.issueClientSession(r.Context())
		if err != nil {
			log.Err(err).Msg("[Server LoginSubmissionHandler] failed to issue client session")
			redirectWithError(w, r, router.PathLogin, auth.LoginFailedMessage)
			return
		}

		result := cs.Auth.Login(r.Context(), email, r.FormValue("password"))
		if !result.OK {
			s.discardClientSession(r.Context(), cs)
			log.Debug().Str("client_session", previous.ID).Str("kind", string(result.Err.Kind)).Msg("login failed")
			redirectWithParams(w, r, router.PathLogin, url.Values{
				"error": {result.Err.Message},
				"email": {email},
			})
			return
		}

		if err := s.clientSessions.Upsert(cs); err != nil {
			log.Err(err).Str("client_session", cs.ID).Msg("[Server LoginSubmissionHandler] failed to register client session")
			s.discardClientSession(r.Context(), cs)
			redirectWithError(w, r, router.PathLogin, auth.LoginFailedMessage)
			return
		}
		cs.Touch(s.now())
		s.forgetClientSession(r.Context(), previous)
		s.SetClientSessionCookie(w, cs.ID, r)
		tagClientSession(w, cs.ID)
		log.Debug().Str("previous", previous.ID).Str("client_session", cs.ID).Msg("client session rotated at login")

		redirectSuccess(w, r, router.PathDashboard)
	}
}

// RegisterSubmissionHandler creates the account. Failures re-render the
// form with the API's per-field messages.
func (s *Server) RegisterSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, router.PathRegister, "Invalid form submission")
			return
		}
		cs := ClientSessionFromContext(r.Context())

		registration := users.Registration{
			Email:     strings.TrimSpace(r.FormValue("email")),
			Username:  strings.TrimSpace(r.FormValue("username")),
			Password:  r.FormValue("password"),
			Password2: r.FormValue("password2"),
			FirstName: strings.TrimSpace(r.FormValue("first_name")),
			LastName:  strings.TrimSpace(r.FormValue("last_name")),
			Currency:  strings.ToUpper(strings.TrimSpace(r.FormValue("currency"))),
		}

		result := cs.Auth.Register(r.Context(), registration)
		if result.OK {
			redirectWithNotice(w, r, router.PathLogin, RegistrationSuccessNotice)
			return
		}

		p, err := s.page("register.html", "Register")
		if err != nil {
			log.Err(err).Msg("[Server RegisterSubmissionHandler] failed to load register page")
			http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
			return
		}
		data := s.pageData(r, p)
		data.Error = result.Err.Message
		data.FieldErrors = result.Err.FieldErrors
		data.Form = map[string]string{
			"email":      registration.Email,
			"username":   registration.Username,
			"first_name": registration.FirstName,
			"last_name":  registration.LastName,
			"currency":   registration.Currency,
		}
		s.renderPage(w, p, statusForError(result.Err), data)
	}
}

// LogoutHandler clears the client session's tokens and user.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs := ClientSessionFromContext(r.Context())
		if err := cs.Auth.Logout(r.Context()); err != nil {
			log.Err(err).Str("client_session", cs.ID).Msg("[Server LogoutHandler] failed to clear stored tokens")
			redirectWithError(w, r, router.PathLogin, "Logged out, but stored tokens could not be removed")
			return
		}
		redirectSuccess(w, r, router.PathLogin)
	}
}
