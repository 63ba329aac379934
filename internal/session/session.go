// Package session holds the global store: the signed-in identity, the toast
// queue and the loading flag shared by every view.
package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/adminstate/internal/state"
	"github.com/vyrodovalexey/adminstate/internal/transport"
)

// StoreName is the registry name of the global store.
const StoreName = "globalStore"

// Global store fields.
const (
	FieldToken       = "token"
	FieldPermissions = "permissions"
	FieldUsername    = "username"
	FieldToasts      = "toasts"
	FieldLoading     = "loading"
)

// PersistedFields are the fields worth keeping between runs.
var PersistedFields = []string{FieldToken, FieldUsername, FieldPermissions, FieldToasts}

// Schema returns the global store's fields and their defaults.
func Schema() map[string]any {
	return map[string]any{
		FieldToken:        "",
		FieldPermissions:  []string{},
		FieldUsername:     "",
		FieldToasts:       []any{},
		state.ErrorsField: []string{},
		FieldLoading:      false,
	}
}

// Session is the manager of the global store.
type Session struct {
	manager *state.Manager
	logger  *zap.Logger
}

type options struct {
	container state.Container
	logger    *zap.Logger
}

// Option configures a Session.
type Option func(*options)

// WithContainer adopts a container created elsewhere, typically one
// rehydrated by the persistence plugin.
func WithContainer(c state.Container) Option {
	return func(o *options) {
		o.container = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New builds the global store in registry. Failures of the global store are
// never sent to a notifier: the toast notifier itself writes here.
func New(registry *state.Registry, opts ...Option) (*Session, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	managerOpts := []state.Option{
		state.WithLogger(o.logger),
		state.WithNotifier(state.NopNotifier{}),
	}
	if o.container != nil {
		managerOpts = append(managerOpts, state.WithContainer(o.container))
	}

	m, err := state.New(registry, StoreName, Schema(), managerOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &Session{manager: m, logger: o.logger}, nil
}

// Manager returns the underlying state manager.
func (s *Session) Manager() *state.Manager {
	return s.manager
}

// Token returns the bearer token. It implements transport.TokenSource; a nil
// session reports transport.ErrSessionNotInitialized.
func (s *Session) Token(_ context.Context) (string, error) {
	if s == nil || s.manager == nil {
		return "", transport.ErrSessionNotInitialized
	}
	return s.stringField(FieldToken), nil
}

// Username returns the signed-in username.
func (s *Session) Username() string {
	return s.stringField(FieldUsername)
}

// Permissions returns the signed-in user's permissions.
func (s *Session) Permissions() []string {
	value, _ := s.manager.Get(FieldPermissions)
	return state.AsStrings(value)
}

// IsAuthenticated reports whether a token is held.
func (s *Session) IsAuthenticated() bool {
	return s.stringField(FieldToken) != ""
}

// SignIn stores the identity returned by a successful login.
func (s *Session) SignIn(token, username string, permissions []string) error {
	if permissions == nil {
		permissions = []string{}
	}
	result := s.manager.SetFieldsValue(map[string]any{
		FieldToken:       token,
		FieldUsername:    username,
		FieldPermissions: append([]string(nil), permissions...),
	})
	if err := result.Err(); err != nil {
		return fmt.Errorf("signing in %s: %w", username, err)
	}
	s.logger.Info("signed in", zap.String("username", username))
	return nil
}

// SignOut forgets the identity. Toasts are kept.
func (s *Session) SignOut() error {
	username := s.Username()
	result := s.manager.SetFieldsValue(map[string]any{
		FieldToken:       "",
		FieldUsername:    "",
		FieldPermissions: []string{},
	})
	if err := result.Err(); err != nil {
		return fmt.Errorf("signing out: %w", err)
	}
	s.logger.Info("signed out", zap.String("username", username))
	return nil
}

// Snapshot returns the raw global state.
func (s *Session) Snapshot() map[string]any {
	return s.manager.RawState()
}

func (s *Session) stringField(key string) string {
	value, _ := s.manager.Get(key)
	str, _ := value.(string)
	return str
}
