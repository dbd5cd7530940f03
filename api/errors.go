package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/jrsteele09/go-finance-web/internal/utils"
)

// ErrDecode is returned when a successful response has an unexpected body.
var ErrDecode = errors.New("unexpected response body")

// Keys of an error payload that are not field errors
const (
	detailKey         = "detail"
	nonFieldErrorsKey = "non_field_errors"
	codeKey           = "code"
)

// Error is a non-2xx response from the API. Payload holds the decoded JSON
// object when the body was one: {"detail": "..."} for most errors, a
// field -> messages map for validation errors.
type Error struct {
	StatusCode int
	Payload    map[string]any
	Body       string
}

func (e *Error) Error() string {
	if detail := e.Detail(); detail != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, detail)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Detail returns the payload's "detail" message, if any.
func (e *Error) Detail() string {
	detail, _ := e.Payload[detailKey].(string)
	return detail
}

func (e *Error) NonFieldErrors() []string {
	return utils.ToStringSlice(e.Payload[nonFieldErrorsKey])
}

// FieldErrors returns the per-field messages of a validation error.
func (e *Error) FieldErrors() map[string][]string {
	fields := make(map[string][]string)
	for key, value := range e.Payload {
		if key == detailKey || key == nonFieldErrorsKey || key == codeKey {
			continue
		}
		if messages := utils.ToStringSlice(value); len(messages) > 0 {
			fields[key] = messages
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// FieldNames returns the keys of FieldErrors in sorted order.
func (e *Error) FieldNames() []string {
	fields := e.FieldErrors()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AsError returns the *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func newError(resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &Error{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return apiErr
	}
	switch v := decoded.(type) {
	case map[string]any:
		apiErr.Payload = v
	case []any:
		apiErr.Payload = map[string]any{nonFieldErrorsKey: v}
	case string:
		apiErr.Payload = map[string]any{detailKey: v}
	}
	return apiErr
}
