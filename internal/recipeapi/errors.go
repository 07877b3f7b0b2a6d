package recipeapi

import (
	"errors"
	"fmt"
)

// Kind classifies a failed call to the recipe backend.
type Kind string

const (
	KindNetwork        Kind = "network"
	KindTimeout        Kind = "timeout"
	KindServerRejected Kind = "server_rejected"
	KindNotFound       Kind = "not_found"
	KindUnknown        Kind = "unknown"
)

const (
	msgTimeout = "request timed out - please try again"
	msgGeneric = "API request failed"
)

// Error is returned by every Client operation that fails for a reason other
// than the caller's own context being cancelled.
type Error struct {
	Kind     Kind
	Op       string
	Endpoint string
	// Status is the HTTP status, 0 when no response was received.
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Endpoint, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a client error, or KindUnknown for anything else.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// IsTimeout reports whether err is a request timeout.
func IsTimeout(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindTimeout
}

// IsNotFound reports whether err means the requested recipe does not exist.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindNotFound
}

// Message returns the user-facing message of err.
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
