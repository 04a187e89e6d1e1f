// Package errors defines the error values the API renders to clients. Each
// carries a stable machine-readable code and an HTTP status; the wrapped
// internal cause is logged but never serialised.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// AppError is an error with a client-facing code and message.
type AppError struct {
	Code       string              `json:"code"`
	Message    string              `json:"message"`
	Fields     map[string][]string `json:"fields,omitempty"`
	StatusCode int                 `json:"-"`
	Internal   error               `json:"-"`
}

func define(code string, status int, message string) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: status}
}

var (
	ErrBadRequest         = define("BAD_REQUEST", http.StatusBadRequest, "Invalid request")
	ErrUnauthorized       = define("UNAUTHORIZED", http.StatusUnauthorized, "Authentication required")
	ErrTokenExpired       = define("TOKEN_EXPIRED", http.StatusUnauthorized, "Access token has expired")
	ErrInvalidCredentials = define("INVALID_CREDENTIALS", http.StatusUnauthorized, "Invalid email or password")
	ErrNotFound           = define("NOT_FOUND", http.StatusNotFound, "Resource not found")
	ErrValidation         = define("VALIDATION_FAILED", http.StatusUnprocessableEntity, "The given data was invalid")
	ErrRateLimit          = define("RATE_LIMIT_EXCEEDED", http.StatusTooManyRequests, "Too many requests, please slow down")
	ErrInternalServer     = define("INTERNAL_SERVER_ERROR", http.StatusInternalServerError, "Internal server error")
	ErrStorage            = define("STORAGE_FAILURE", http.StatusInternalServerError, "File storage operation failed")
	ErrServiceUnavailable = define("SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, "One or more dependencies are unavailable")
)

func (e *AppError) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.Internal != nil:
		return e.Message + ": " + e.Internal.Error()
	case len(e.Fields) > 0:
		return e.Message + ": " + formatFields(e.Fields)
	default:
		return e.Message
	}
}

// Unwrap returns the internal cause.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is matches any AppError with the same code, so errors.Is(err, ErrNotFound)
// holds for customised not-found messages too.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e != nil && t != nil && e.Code == t.Code
}

// WithInternal returns a copy of e wrapping err.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Internal = err
	return &cp
}

// WithMessage returns a copy of e with a different client message.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Message = message
	return &cp
}

// New defines an ad hoc error.
func New(code, message string, status int) *AppError {
	return define(code, status, message)
}

// Wrap reports err as a 500 with message.
func Wrap(err error, message string) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: message, StatusCode: http.StatusInternalServerError, Internal: err}
}

// FromError returns the AppError in err's chain, or ErrInternalServer
// wrapping err. A nil err yields nil.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest is ErrBadRequest with message.
func NewBadRequest(message string) *AppError {
	return ErrBadRequest.WithMessage(message)
}

// NewValidation is ErrValidation carrying a copy of fields.
func NewValidation(fields map[string][]string) *AppError {
	cp := *ErrValidation
	cp.Fields = make(map[string][]string, len(fields))
	for field, messages := range fields {
		cp.Fields[field] = append([]string(nil), messages...)
	}
	return &cp
}

// NewStorage reports a failed file operation without exposing paths.
func NewStorage(err error) *AppError {
	return ErrStorage.WithInternal(err)
}

// IsValidation reports whether err carries field validation failures.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// FieldErrors accumulates validation messages per field.
type FieldErrors map[string][]string

// Add appends message to field.
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// Empty reports whether nothing was recorded.
func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

// Err returns nil when empty, otherwise a validation error.
func (f FieldErrors) Err() error {
	if f.Empty() {
		return nil
	}
	return NewValidation(f)
}

func formatFields(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s", key, strings.Join(fields[key], ", "))
	}
	return b.String()
}
