// Package apperr defines the application error taxonomy and its mapping to
// HTTP statuses and the client-facing response envelope.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for status mapping and client rendering.
type Kind int

const (
	// KindInternal is an infrastructure or programming failure. Rendered as a
	// generic 500; the cause is logged server-side only.
	KindInternal Kind = iota
	// KindNotFound means the addressed resource does not exist.
	KindNotFound
	// KindResourceExists means a uniqueness constraint was violated.
	KindResourceExists
	// KindForbidden means the caller is authenticated but not allowed.
	// Includes disabled users and permission denials.
	KindForbidden
	// KindUnauthorized means the token is missing, invalid, expired, or the
	// backing session has been destroyed.
	KindUnauthorized
	// KindBadRequest means malformed input or an invalid header.
	KindBadRequest
	// KindNotModified means a no-op update was attempted.
	KindNotModified
)

// FieldError describes a single invalid field in a request.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error is the application error type. Message is safe to show to clients;
// the wrapped cause is not and stays server-side.
type Error struct {
	Kind    Kind
	Message string
	Details []FieldError
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// WithDetails returns a copy of e carrying per-field detail entries.
func (e *Error) WithDetails(details ...FieldError) *Error {
	c := *e
	c.Details = append(append([]FieldError(nil), e.Details...), details...)
	return &c
}

// New returns an Error of the given kind with a client-safe message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns an Error of the given kind whose message names the resource
// while keeping cause for server-side logs. Raw driver text never reaches the
// client through Message.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func NotFound(resource string) *Error {
	return New(KindNotFound, resource+" not found")
}

func ResourceExists(resource string) *Error {
	return New(KindResourceExists, resource+" already exists")
}

func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}

func NotModified(message string) *Error {
	return New(KindNotModified, message)
}

// Internal wraps an infrastructure failure. The client sees a fixed message.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", cause: cause}
}

// From converts any error to *Error. Non-taxonomy errors become KindInternal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// HTTPStatus maps an error kind to its HTTP status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindResourceExists:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotModified:
		return http.StatusNotModified
	default:
		return http.StatusInternalServerError
	}
}

// Code is the machine-readable code used in the response envelope.
func (k Kind) Code() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindResourceExists:
		return "resource_exists"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	case KindBadRequest:
		return "bad_request"
	case KindNotModified:
		return "not_modified"
	default:
		return "internal"
	}
}
