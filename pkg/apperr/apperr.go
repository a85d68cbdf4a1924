// Package apperr defines the typed errors services return and controllers
// translate into HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	Internal Kind = iota
	BadRequest
	Validation
	Unauthenticated
	Forbidden
	NotFound
	Misconfigured
	Upstream
)

// Error carries a kind, a client-safe message, and optional details.
type Error struct {
	Kind    Kind
	Message string
	// Fields holds field-level validation messages (Validation only).
	Fields map[string]string
	// Missing enumerates absent configuration names (Misconfigured only).
	Missing []string
	// UpstreamStatus / UpstreamBody proxy the gateway's failure (Upstream only).
	UpstreamStatus int
	UpstreamBody   string

	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.wrapped)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.wrapped }

// HTTPStatus maps the kind to its response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case BadRequest:
		return http.StatusBadRequest
	case Validation:
		return http.StatusUnprocessableEntity
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Upstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// New builds a plain error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a cause to a new error of the given kind.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, wrapped: cause}
}

// ValidationFields builds a validation error from a field→message map.
func ValidationFields(fields map[string]string) *Error {
	return &Error{Kind: Validation, Message: "Validation failed", Fields: fields}
}

// MisconfiguredVars builds a configuration error listing exactly what is missing.
func MisconfiguredVars(missing []string) *Error {
	return &Error{
		Kind:    Misconfigured,
		Message: "Server misconfiguration: missing env vars",
		Missing: missing,
	}
}

// UpstreamError builds a gateway error proxying the upstream status and body.
func UpstreamError(status int, body string, cause error) *Error {
	return &Error{
		Kind:           Upstream,
		Message:        "Payment API error",
		UpstreamStatus: status,
		UpstreamBody:   body,
		wrapped:        cause,
	}
}

// As extracts an *Error from err, or wraps err as Internal.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Wrap(Internal, "Internal Server Error", err)
}
