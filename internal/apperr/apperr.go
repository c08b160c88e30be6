// Package apperr defines the error taxonomy shared by every service. Services
// return these errors and the HTTP layer maps them to status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrBadRequest      = errors.New("bad request")
	ErrQuotaExceeded   = errors.New("quota exceeded")
	ErrConflict        = errors.New("conflict")
)

// Error carries a message that is safe to show to the user and unwraps to one
// of the sentinels above
type Error struct {
	Err     error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Unauthenticated() *Error {
	return &Error{Err: ErrUnauthenticated, Message: "Authentication required"}
}

func Forbidden(message string) *Error {
	return &Error{Err: ErrForbidden, Message: message}
}

func NotFound(resource, id string) *Error {
	return &Error{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s %q not found", resource, id),
	}
}

func BadRequest(message string) *Error {
	return &Error{Err: ErrBadRequest, Message: message}
}

func QuotaExceeded(message string) *Error {
	return &Error{Err: ErrQuotaExceeded, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Err: ErrConflict, Message: message}
}

// Status maps err to an HTTP status code. Anything outside the taxonomy is a
// 500.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrQuotaExceeded), errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing message of err, or a generic one when err
// is not an *Error
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}

	return "Internal server error"
}
