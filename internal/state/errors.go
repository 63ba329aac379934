package state

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vyrodovalexey/adminstate/internal/keypath"
)

// State errors.
var (
	ErrKeyNotFound           = keypath.ErrKeyNotFound
	ErrInvalidResponseFormat = errors.New("invalid data format received")
	ErrInvalidStoreName      = errors.New("store name cannot be empty")
	ErrNilRegistry           = errors.New("registry cannot be nil")
	ErrRegistryClosed        = errors.New("registry is closed")
	ErrNoTransport           = errors.New("no transport configured")
	ErrInvalidPageRequest    = errors.New("page request requires an endpoint and a field")
)

// KeyNotFoundError reports a write to a path that does not resolve inside the
// store's object graph.
type KeyNotFoundError struct {
	Store string
	Key   string
}

// Error implements error.
func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("Key %s not found in %q state", e.Key, e.Store)
}

// Unwrap allows errors.Is(err, ErrKeyNotFound).
func (e *KeyNotFoundError) Unwrap() error {
	return ErrKeyNotFound
}

// FieldError is one failed write of a batch.
type FieldError struct {
	Key string
	Err error
}

// Error implements error.
func (e FieldError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e FieldError) Unwrap() error {
	return e.Err
}

// BatchResult lists what a best-effort batch write applied and what it could
// not apply. Failed keys have already been recorded in the store's errors.
type BatchResult struct {
	Applied []string
	Failed  []FieldError
}

// OK reports whether every key was applied.
func (r BatchResult) OK() bool {
	return len(r.Failed) == 0
}

// Err joins the failures, or returns nil.
func (r BatchResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, failed := range r.Failed {
		errs[i] = failed
	}
	return errors.Join(errs...)
}

// String summarizes the result for logs.
func (r BatchResult) String() string {
	failed := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		failed[i] = f.Key
	}
	return fmt.Sprintf("applied=[%s] failed=[%s]",
		strings.Join(r.Applied, ","), strings.Join(failed, ","))
}
