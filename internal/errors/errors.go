package errors

import (
	"errors"
	"fmt"
)

// Common error types for the finance web front
var (
	// Token errors
	ErrNoAccessToken = errors.New("no access token")
	ErrInvalidToken  = errors.New("invalid token")

	// Storage errors
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Client session errors
	ErrSessionNotFound = errors.New("session not found")

	// Account errors
	ErrUserNotFound = errors.New("user not found")

	// General errors
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
