package apifake

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-finance-web/users"
	"github.com/rs/zerolog/log"
)

const fieldRequired = "This field is required."

// fieldErrors collects validation messages per field, like a serializer does.
type fieldErrors map[string][]string

func (f fieldErrors) add(field string, messages ...string) {
	f[field] = append(f[field], messages...)
}

func (f fieldErrors) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		f.add(field, fieldRequired)
	}
}

func (s *Server) tokenHandler(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		writeJSON(w, http.StatusBadRequest, detail("JSON parse error"))
		return
	}

	errs := fieldErrors{}
	errs.required("email", credentials.Email)
	errs.required("password", credentials.Password)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	account, err := s.accounts.GetByEmail(credentials.Email)
	if err != nil || !account.CheckPassword(credentials.Password) {
		writeJSON(w, http.StatusUnauthorized, detail("No active account found with the given credentials"))
		return
	}

	pair, err := s.IssueTokens(account)
	if err != nil {
		log.Err(err).Msg("apifake: failed to issue tokens")
		writeJSON(w, http.StatusInternalServerError, detail("A server error occurred."))
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var registration users.Registration
	if err := json.NewDecoder(r.Body).Decode(&registration); err != nil {
		writeJSON(w, http.StatusBadRequest, detail("JSON parse error"))
		return
	}

	errs := fieldErrors{}
	errs.required("email", registration.Email)
	errs.required("username", registration.Username)
	errs.required("password", registration.Password)
	errs.required("password2", registration.Password2)
	if registration.Email != "" && !strings.Contains(registration.Email, "@") {
		errs.add("email", "Enter a valid email address.")
	}
	if registration.Email != "" {
		if _, err := s.accounts.GetByEmail(registration.Email); err == nil {
			errs.add("email", "user with this email already exists.")
		}
	}
	if registration.Password != "" {
		if problems := users.PasswordProblems(registration.Password, registration.Username, registration.Email); len(problems) > 0 {
			errs.add("password", problems...)
		}
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	if registration.Password != registration.Password2 {
		writeJSON(w, http.StatusBadRequest, fieldErrors{"password": {"Password fields did not match!"}})
		return
	}

	account, err := s.AddAccount(registration.Email, registration.Password, users.Profile{
		Username:  registration.Username,
		FirstName: registration.FirstName,
		LastName:  registration.LastName,
		Currency:  registration.Currency,
	})
	if err != nil {
		log.Err(err).Msg("apifake: failed to create account")
		writeJSON(w, http.StatusInternalServerError, detail("A server error occurred."))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"email":      account.Email,
		"username":   account.Username,
		"first_name": account.FirstName,
		"last_name":  account.LastName,
		"currency":   account.Currency,
	})
}

func (s *Server) profileHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())
	writeJSON(w, http.StatusOK, account.ToProfile())
}

func (s *Server) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var update users.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, detail("JSON parse error"))
		return
	}

	account := accountFromContext(r.Context())
	errs := fieldErrors{}
	if update.Username != nil {
		errs.required("username", *update.Username)
		account.Username = *update.Username
	}
	if update.Currency != nil {
		if len(*update.Currency) != 3 {
			errs.add("currency", "Ensure this field has no more than 3 characters.")
		}
		account.Currency = strings.ToUpper(*update.Currency)
	}
	if update.FirstName != nil {
		account.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		account.LastName = *update.LastName
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	if err := s.accounts.Upsert(account); err != nil {
		writeJSON(w, http.StatusInternalServerError, detail("A server error occurred."))
		return
	}
	writeJSON(w, http.StatusOK, account.ToProfile())
}

func (s *Server) changePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var change users.PasswordChange
	if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
		writeJSON(w, http.StatusBadRequest, detail("JSON parse error"))
		return
	}

	errs := fieldErrors{}
	errs.required("old_password", change.OldPassword)
	errs.required("new_password", change.NewPassword)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	account := accountFromContext(r.Context())
	if !account.CheckPassword(change.OldPassword) {
		writeJSON(w, http.StatusBadRequest, fieldErrors{"old_password": {"wrong password!"}})
		return
	}
	if problems := users.PasswordProblems(change.NewPassword, account.Username, account.Email); len(problems) > 0 {
		writeJSON(w, http.StatusBadRequest, fieldErrors{"new_password": problems})
		return
	}

	hash, err := users.HashPassword(change.NewPassword)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, detail("A server error occurred."))
		return
	}
	account.PasswordHash = hash
	if err := s.accounts.Upsert(account); err != nil {
		writeJSON(w, http.StatusInternalServerError, detail("A server error occurred."))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully!"})
}
