package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Common error types for the onboarding client and the simulated backend
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")

	// Token errors
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Session errors
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrSessionExpired    = errors.New("session expired")
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrLoginSuperseded   = errors.New("login superseded by logout")
	ErrRefreshSuperseded = errors.New("refresh superseded by logout")

	// General errors
	ErrNotFound       = errors.New("not found")
	ErrInternal       = errors.New("internal error")
	ErrValidation     = errors.New("validation failed")
	ErrUnavailable    = errors.New("server error")
	ErrUnsupported    = errors.New("unsupported operation")
	ErrInvalidRequest = errors.New("invalid request")
)

// APIError is the structured failure returned by the backend.
// Status is one of 400 (validation), 401 (auth) or 500 (transient server error).
type APIError struct {
	Status      int               `json:"status"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	cause       error
}

func (e *APIError) Error() string {
	if len(e.FieldErrors) == 0 {
		return fmt.Sprintf("%d: %s", e.Status, e.Message)
	}
	keys := make([]string, 0, len(e.FieldErrors))
	for k := range e.FieldErrors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.FieldErrors[k])
	}
	return fmt.Sprintf("%d: %s (%s)", e.Status, e.Message, strings.Join(parts, ", "))
}

// Unwrap exposes the sentinel the error was built from, so errors.Is works on APIErrors.
func (e *APIError) Unwrap() error {
	return e.cause
}

// NewValidationError builds a 400 error carrying per-field messages keyed "section.field".
func NewValidationError(message string, fieldErrors map[string]string) *APIError {
	if message == "" {
		message = "Validation failed"
	}
	return &APIError{Status: http.StatusBadRequest, Message: message, FieldErrors: fieldErrors, cause: ErrValidation}
}

// NewAuthError builds a 401 error. cause is optional and is reachable through errors.Is.
func NewAuthError(message string, cause error) *APIError {
	if cause == nil {
		cause = ErrInvalidToken
	}
	return &APIError{Status: http.StatusUnauthorized, Message: message, cause: cause}
}

// NewServerError builds a 500 error.
func NewServerError(message string) *APIError {
	if message == "" {
		message = "Server error. Try again."
	}
	return &APIError{Status: http.StatusInternalServerError, Message: message, cause: ErrUnavailable}
}

// FromStatus rebuilds an APIError received over the wire.
func FromStatus(status int, message string, fieldErrors map[string]string) *APIError {
	switch {
	case status == http.StatusUnauthorized:
		return NewAuthError(message, nil)
	case status == http.StatusBadRequest:
		return NewValidationError(message, fieldErrors)
	case status >= http.StatusInternalServerError:
		e := NewServerError(message)
		e.Status = status
		return e
	default:
		return &APIError{Status: status, Message: message, FieldErrors: fieldErrors, cause: ErrInvalidRequest}
	}
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not an APIError.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsAuthError reports whether err carries 401 semantics.
func IsAuthError(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// IsValidationError reports whether err carries 400 semantics.
func IsValidationError(err error) bool {
	return StatusOf(err) == http.StatusBadRequest
}

// IsServerError reports whether err is a transient server failure.
func IsServerError(err error) bool {
	return StatusOf(err) >= http.StatusInternalServerError
}

// FieldErrors returns the per-field messages of a validation error, or nil.
func FieldErrors(err error) map[string]string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.FieldErrors
	}
	return nil
}

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
