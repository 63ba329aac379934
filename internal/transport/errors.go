package transport

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrConfiguration marks fatal setup problems detected before any request
	// is sent.
	ErrConfiguration = errors.New("configuration error")

	// ErrTransport marks network failures and non-2xx responses.
	ErrTransport = errors.New("transport error")

	ErrMissingBaseURL        = fmt.Errorf("%w: API URL is not defined", ErrConfiguration)
	ErrSessionNotInitialized = fmt.Errorf("%w: global store is not initialized", ErrConfiguration)
)

// Error is a failed API call.
type Error struct {
	Method     string
	Endpoint   string
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

// Error implements error.
func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Endpoint, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Endpoint, e.Err)
	default:
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Endpoint, e.StatusCode)
	}
}

// Is matches ErrTransport.
func (e *Error) Is(target error) bool {
	return target == ErrTransport
}

// Unwrap returns the cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}
