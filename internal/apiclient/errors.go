// Package apiclient is the HTTP client adapter for the PawConnect backend.
// This file defines the single error type every call returns and the
// sentinel values callers match with errors.Is.
package apiclient

import (
	"errors"
	"net/http"
)

// Kind classifies a failed call.
type Kind string

const (
	// KindTransport: no response was received (dial error, timeout, cancel).
	KindTransport Kind = "transport"
	// KindClient: the backend answered 4xx.
	KindClient Kind = "client-error"
	// KindServer: the backend answered 5xx.
	KindServer Kind = "server-error"
	// KindInvalidResponse: a 2xx body could not be parsed or lacked required fields.
	KindInvalidResponse Kind = "invalid-response"
	// KindRejected: a 2xx envelope carried success=false.
	KindRejected Kind = "rejected"
	// KindAuthRequired: the call needs a credential and none is held. No
	// request is sent.
	KindAuthRequired Kind = "auth-required"
)

// Messages used when the backend gives none.
const (
	DefaultMessage         = "An error occurred"
	NetworkMessage         = "Network error"
	InvalidResponseMessage = "Invalid response from server"
	AuthRequiredMessage    = "Authentication required. Please login."
)

// Sentinels for errors.Is. ErrValidation, ErrUnauthenticated, ErrForbidden
// and ErrNotFound are sub-kinds of ErrClient keyed on the status code.
var (
	ErrTransport       = errors.New("transport error")
	ErrClient          = errors.New("client error")
	ErrValidation      = errors.New("validation error")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrServer          = errors.New("server error")
	ErrInvalidResponse = errors.New("invalid response")
	ErrRejected        = errors.New("rejected by server")
	ErrAuthRequired    = errors.New("authentication required")
)

// Error is the normalized failure of a call.
//
// Fields:
//   - Kind: failure class (see Kind constants).
//   - Status: HTTP status when a response was received, else 0.
//   - Message: human-readable text, safe to show to the user.
//   - Field: offending field for validation failures, when known.
//   - RequestID: X-Request-ID sent with the call.
//   - Err: underlying cause (transport or decode error), if any.
type Error struct {
	Kind      Kind
	Status    int
	Message   string
	Field     string
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return DefaultMessage
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches the package sentinels against Kind and Status.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrClient:
		return e.Kind == KindClient
	case ErrValidation:
		return e.Kind == KindClient && e.Status == http.StatusBadRequest
	case ErrUnauthenticated:
		return e.Kind == KindClient && e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Kind == KindClient && e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Kind == KindClient && e.Status == http.StatusNotFound
	case ErrServer:
		return e.Kind == KindServer
	case ErrInvalidResponse:
		return e.Kind == KindInvalidResponse
	case ErrRejected:
		return e.Kind == KindRejected
	case ErrAuthRequired:
		return e.Kind == KindAuthRequired
	}
	return false
}

// Validation builds the local form-validation failure: a client error with
// status 400, so callers handle it exactly like a backend 400.
func Validation(field, msg string) *Error {
	return &Error{Kind: KindClient, Status: http.StatusBadRequest, Message: msg, Field: field}
}

// NewAuthRequiredError builds the local missing-credential failure.
func NewAuthRequiredError() *Error {
	return &Error{Kind: KindAuthRequired, Message: AuthRequiredMessage, Err: ErrAuthRequired}
}

// InvalidResponse builds a decode/shape failure for a 2xx answer.
func InvalidResponse(status int, cause error) *Error {
	return &Error{Kind: KindInvalidResponse, Status: status, Message: InvalidResponseMessage, Err: cause}
}

// MessageOf returns the user-facing message carried by err.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	if s := err.Error(); s != "" {
		return s
	}
	return DefaultMessage
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func classify(status int) Kind {
	switch {
	case status >= 500:
		return KindServer
	case status >= 400:
		return KindClient
	}
	return ""
}
