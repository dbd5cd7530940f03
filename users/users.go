package users

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Profile is the user object returned by the profile endpoint. The API
// owns its schema: the typed fields are filled when present with the
// expected type, and Raw holds every field exactly as it was sent.
type Profile struct {
	ID             int64   `json:"id"`                        // Unique identifier for the user
	Email          string  `json:"email,omitempty"`           // User's email address, also the login name
	Username       string  `json:"username,omitempty"`        // Unique username
	FirstName      string  `json:"first_name,omitempty"`      // First name of the user
	LastName       string  `json:"last_name,omitempty"`       // Last name of the user
	FullName       string  `json:"full_name,omitempty"`       // Server-computed display name
	ProfilePicture *string `json:"profile_picture,omitempty"` // URL of the uploaded picture, if any
	Currency       string  `json:"currency,omitempty"`        // ISO 4217 code used for amounts
	CreatedAt      string  `json:"created_at,omitempty"`      // Creation timestamp as sent by the API

	Raw map[string]any `json:"-"` // Decoded payload, nil for profiles built in code
}

// DisplayName mirrors the server's full_name: first and last name, else a
// "name" field, else the username.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.FullName != "" {
		return p.FullName
	}
	if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
		return name
	}
	if name, ok := p.Raw["name"].(string); ok && name != "" {
		return name
	}
	if p.Username != "" {
		return p.Username
	}
	return p.Email
}

// Registration is the sign-up payload. Password2 is the confirmation field.
type Registration struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Currency  string `json:"currency,omitempty"`
}

// ProfileUpdate is a partial profile update; nil fields are left untouched.
type ProfileUpdate struct {
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Currency  *string `json:"currency,omitempty"`
}

type PasswordChange struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Account is the server-side record behind a Profile.
type Account struct {
	Profile
	PasswordHash string `json:"-"` // Hashed version of the user's password - never serialize
}

// ToProfile returns the public view of the account with full_name filled in.
func (a *Account) ToProfile() Profile {
	p := a.Profile
	p.FullName = strings.TrimSpace(p.FirstName + " " + p.LastName)
	if p.FullName == "" {
		p.FullName = p.Username
	}
	return p
}

// PasswordProblems lists the password rules the API enforces that password breaks:
// - At least 8 characters long
// - Not entirely numeric
// - Not the same as the email or username
func PasswordProblems(password string, identifiers ...string) []string {
	var problems []string
	if len(password) < 8 {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}

	allDigits := password != ""
	for _, char := range password {
		if !unicode.IsDigit(char) {
			allDigits = false
			break
		}
	}
	if allDigits {
		problems = append(problems, "This password is entirely numeric.")
	}

	for _, id := range identifiers {
		if id != "" && strings.EqualFold(password, id) {
			problems = append(problems, "The password is too similar to the username.")
			break
		}
	}
	return problems
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks a password against the account's hash
func (a *Account) CheckPassword(password string) bool {
	return CheckPasswordHash(password, a.PasswordHash)
}
