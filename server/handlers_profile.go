package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-finance-web/internal/utils"
	"github.com/jrsteele09/go-finance-web/router"
	"github.com/jrsteele09/go-finance-web/users"
)

const (
	ProfileUpdatedNotice  = "Profile updated"
	PasswordChangedNotice = "Password changed"
)

// ProfileUpdateHandler applies the non-empty profile fields of the form.
func (s *Server) ProfileUpdateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, router.PathDashboard, "Invalid form submission")
			return
		}

		update, changed := profileUpdateFromForm(r)
		if !changed {
			redirectWithError(w, r, router.PathDashboard, "Nothing to update")
			return
		}

		cs := ClientSessionFromContext(r.Context())
		result := cs.Auth.UpdateProfile(r.Context(), update)
		if !result.OK {
			redirectWithError(w, r, router.PathDashboard, errorSummary(result.Err))
			return
		}
		redirectWithNotice(w, r, router.PathDashboard, ProfileUpdatedNotice)
	}
}

func profileUpdateFromForm(r *http.Request) (users.ProfileUpdate, bool) {
	var update users.ProfileUpdate
	changed := false
	set := func(field string, target **string, normalise func(string) string) {
		value := strings.TrimSpace(r.FormValue(field))
		if value == "" {
			return
		}
		if normalise != nil {
			value = normalise(value)
		}
		*target = utils.Ptr(value)
		changed = true
	}
	set("username", &update.Username, nil)
	set("first_name", &update.FirstName, nil)
	set("last_name", &update.LastName, nil)
	set("currency", &update.Currency, strings.ToUpper)
	return update, changed
}

// ChangePasswordHandler changes the password after checking the
// confirmation matches.
func (s *Server) ChangePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, router.PathDashboard, "Invalid form submission")
			return
		}

		change := users.PasswordChange{
			OldPassword: r.FormValue("old_password"),
			NewPassword: r.FormValue("new_password"),
		}
		if change.OldPassword == "" || change.NewPassword == "" {
			redirectWithError(w, r, router.PathDashboard, "Current and new password are required")
			return
		}
		if change.NewPassword != r.FormValue("new_password2") {
			redirectWithError(w, r, router.PathDashboard, "New passwords do not match")
			return
		}

		cs := ClientSessionFromContext(r.Context())
		result := cs.Auth.ChangePassword(r.Context(), change)
		if !result.OK {
			redirectWithError(w, r, router.PathDashboard, errorSummary(result.Err))
			return
		}
		redirectWithNotice(w, r, router.PathDashboard, PasswordChangedNotice)
	}
}
