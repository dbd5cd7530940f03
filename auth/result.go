package auth

import (
	"fmt"

	"github.com/jrsteele09/go-finance-web/api"
	apperrors "github.com/jrsteele09/go-finance-web/internal/errors"
	"github.com/jrsteele09/go-finance-web/users"
)

type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"      // The API rejected the input (400)
	KindUnauthorized    ErrorKind = "unauthorized"    // Bad credentials or a rejected token (401/403)
	KindUnauthenticated ErrorKind = "unauthenticated" // No access token to send
	KindNetwork         ErrorKind = "network"         // The API could not be reached
	KindServer          ErrorKind = "server"          // Any other non-2xx answer
	KindStorage         ErrorKind = "storage"         // The token store failed
	KindDecode          ErrorKind = "decode"          // A 2xx answer with an unexpected body
)

// Fallback messages used when the API gives nothing better
const (
	LoginFailedMessage          = "Login failed"
	RegistrationFailedMessage   = "Registration failed"
	ProfileFailedMessage        = "Failed to fetch profile"
	ProfileUpdateFailedMessage  = "Profile update failed"
	PasswordChangeFailedMessage = "Password change failed"
	NotLoggedInMessage          = "You are not logged in"
)

// Error is the single error shape every session action reports.
type Error struct {
	Kind        ErrorKind
	Message     string              // Human-readable, never empty
	FieldErrors map[string][]string // Per-field validation messages, if any
	Err         error               // Underlying cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result is either {OK: true, Value} or {OK: false, Err}.
type Result[T any] struct {
	OK    bool
	Value T
	Err   *Error
}

func Ok[T any](value T) Result[T] {
	return Result[T]{OK: true, Value: value}
}

func Fail[T any](err *Error) Result[T] {
	return Result[T]{Err: err}
}

// ProfileResult and Outcome are the result types of the session actions.
type (
	ProfileResult = Result[*users.Profile]
	Outcome       = Result[struct{}]
)

// NormaliseError maps an API call failure onto the unified Error. fallback is
// used when the payload carries no message of its own.
func NormaliseError(err error, fallback string) *Error {
	if apiErr, ok := api.AsError(err); ok {
		message := apiErr.Detail()
		if message == "" {
			if nonField := apiErr.NonFieldErrors(); len(nonField) > 0 {
				message = nonField[0]
			}
		}
		if message == "" {
			message = fallback
		}
		return &Error{
			Kind:        kindForStatus(apiErr.StatusCode),
			Message:     message,
			FieldErrors: apiErr.FieldErrors(),
			Err:         err,
		}
	}

	switch {
	case apperrors.Is(err, apperrors.ErrNoAccessToken):
		return &Error{Kind: KindUnauthenticated, Message: NotLoggedInMessage, Err: err}
	case apperrors.Is(err, api.ErrDecode):
		return &Error{Kind: KindDecode, Message: fallback, Err: err}
	default:
		return &Error{Kind: KindNetwork, Message: fallback, Err: err}
	}
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return KindUnauthorized
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindServer
	}
}

func storageError(err error, message string) *Error {
	return &Error{Kind: KindStorage, Message: message, Err: err}
}
