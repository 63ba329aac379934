package state

// Notifier receives human-readable messages for display. Calls are
// fire-and-forget.
type Notifier interface {
	Error(message string)
	Success(message string)
}

// NopNotifier discards every message.
type NopNotifier struct{}

// Error does nothing.
func (NopNotifier) Error(string) {}

// Success does nothing.
func (NopNotifier) Success(string) {}
