// Package views holds helpers shared by the feature stores.
package views

import (
	"errors"

	"github.com/vyrodovalexey/adminstate/internal/state"
	"github.com/vyrodovalexey/adminstate/internal/transport"
)

// Record adds a failed call to the store's errors. Configuration errors are
// not recorded: they describe the client, not the store.
func Record(m *state.Manager, prefix string, err error) {
	if err == nil || errors.Is(err, transport.ErrConfiguration) {
		return
	}
	m.AddError(prefix + ": " + Message(err))
}

// Message returns the API's message for a failed call, or the error text.
func Message(err error) string {
	var apiErr *transport.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
