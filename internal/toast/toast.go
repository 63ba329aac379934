// Package toast queues user-facing notifications in the global store.
package toast

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/adminstate/internal/model"
	"github.com/vyrodovalexey/adminstate/internal/session"
)

// Notifier appends toasts to the session's toast list. It satisfies
// state.Notifier and transport.ErrorNotifier.
type Notifier struct {
	session *session.Session
	logger  *zap.Logger

	// mu serializes the read-modify-write of the toast list.
	mu sync.Mutex
}

// New creates a Notifier writing into s.
func New(s *session.Session, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{session: s, logger: logger}
}

// Success queues a success toast.
func (n *Notifier) Success(message string) {
	n.push(model.ToastSuccess, message, "")
}

// SuccessFor queues a success toast addressed to username.
func (n *Notifier) SuccessFor(username, message string) {
	n.push(model.ToastSuccess, message, username)
}

// Error queues an error toast.
func (n *Notifier) Error(message string) {
	n.push(model.ToastError, message, "")
}

// List returns the queued toasts, oldest first.
func (n *Notifier) List() []model.Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.load()
}

// Remove drops the toast with id and reports whether it existed.
func (n *Notifier) Remove(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	toasts := n.load()
	kept := make([]model.Toast, 0, len(toasts))
	for _, t := range toasts {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(toasts) {
		return false
	}
	return n.store(kept) == nil
}

// Clear drops every toast.
func (n *Notifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	_ = n.store(nil)
}

func (n *Notifier) push(kind, message, username string) {
	t := model.Toast{
		ID:       uuid.New().String(),
		Type:     kind,
		Message:  message,
		Username: username,
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.store(append(n.load(), t)); err != nil {
		n.logger.Error("toast not queued", zap.String("message", message), zap.Error(err))
		return
	}
	n.logger.Debug("toast queued", zap.String("id", t.ID), zap.String("type", kind))
}

// load decodes the stored list. Entries are plain objects so the list
// survives persistence round trips.
func (n *Notifier) load() []model.Toast {
	value, _ := n.session.Manager().Get(session.FieldToasts)
	var toasts []model.Toast
	if err := model.Convert(value, &toasts); err != nil {
		n.logger.Warn("discarding unreadable toasts", zap.Error(err))
		return nil
	}
	return toasts
}

func (n *Notifier) store(toasts []model.Toast) error {
	list := make([]any, 0, len(toasts))
	for _, t := range toasts {
		var entry map[string]any
		if err := model.Convert(t, &entry); err != nil {
			return fmt.Errorf("encoding toast %s: %w", t.ID, err)
		}
		list = append(list, entry)
	}
	return n.session.Manager().SetFieldValue(session.FieldToasts, list)
}
