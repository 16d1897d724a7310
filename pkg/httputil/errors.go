package httputil

import (
	"errors"
	"net/http"
)

// Kind classifies an API error so handlers never choose raw status codes.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindValidation
	KindConflict
	KindRateLimited
)

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// APIError is an error with a classification and optional field-level details.
type APIError struct {
	Kind    Kind
	Message string
	Details []string
	Err     error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Unauthenticated builds a 401 error.
func Unauthenticated(message string) *APIError {
	return &APIError{Kind: KindUnauthenticated, Message: message}
}

// Forbidden builds a 403 error.
func Forbidden(message string) *APIError {
	return &APIError{Kind: KindForbidden, Message: message}
}

// NotFound builds a 404 error.
func NotFound(message string) *APIError {
	return &APIError{Kind: KindNotFound, Message: message}
}

// Validation builds a 400 error with per-field detail messages.
func Validation(message string, details ...string) *APIError {
	return &APIError{Kind: KindValidation, Message: message, Details: details}
}

// Conflict builds a 409 error.
func Conflict(message string) *APIError {
	return &APIError{Kind: KindConflict, Message: message}
}

// RateLimited builds a 429 error.
func RateLimited(message string) *APIError {
	return &APIError{Kind: KindRateLimited, Message: message}
}

// Internal wraps an unexpected error as a 500 without leaking its message
// to clients.
func Internal(err error) *APIError {
	return &APIError{Kind: KindInternal, Message: "erro interno do servidor", Err: err}
}

// AsAPIError extracts an *APIError from err, wrapping unknown errors as
// internal.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal(err)
}

// KindOf reports the classification of err.
func KindOf(err error) Kind {
	return AsAPIError(err).Kind
}
