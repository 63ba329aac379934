// Package app wires the state stores, the API client and the route guard
// into one admin console session.
package app

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/adminstate/internal/config"
	"github.com/vyrodovalexey/adminstate/internal/guard"
	"github.com/vyrodovalexey/adminstate/internal/persist"
	"github.com/vyrodovalexey/adminstate/internal/session"
	"github.com/vyrodovalexey/adminstate/internal/state"
	"github.com/vyrodovalexey/adminstate/internal/toast"
	"github.com/vyrodovalexey/adminstate/internal/transport"
	"github.com/vyrodovalexey/adminstate/internal/views/login"
	"github.com/vyrodovalexey/adminstate/internal/views/person"
)

// ErrAccessDenied is returned by Authorize when the guard refuses a path.
var ErrAccessDenied = errors.New("access denied")

// App is a console session: the global store persisted in the state
// directory plus the feature stores built on top of it.
type App struct {
	registry *state.Registry
	files    *persist.FileStore
	session  *session.Session
	toasts   *toast.Notifier
	client   *transport.Client
	guard    *guard.Guard
	login    *login.View
	persons  *person.View
	logger   *zap.Logger
}

// New builds an App from cfg. The session is rehydrated from cfg.StateDir.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		registry: state.NewRegistry(logger),
		logger:   logger,
	}

	if err := a.init(cfg); err != nil {
		a.registry.Close()
		return nil, err
	}

	logger.Debug("console ready",
		zap.String("api_url", cfg.APIURL),
		zap.String("state_dir", cfg.StateDir),
		zap.Strings("stores", a.registry.Names()),
	)
	return a, nil
}

func (a *App) init(cfg *config.Config) error {
	files, err := persist.NewFileStore(cfg.StateDir, a.logger)
	if err != nil {
		return fmt.Errorf("opening state directory: %w", err)
	}
	a.files = files

	container, err := files.Container(session.StoreName, session.Schema(),
		persist.WithPaths(session.PersistedFields...))
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	a.session, err = session.New(a.registry,
		session.WithContainer(container),
		session.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	a.toasts = toast.New(a.session, a.logger)

	a.client = transport.New(cfg.APIURL,
		transport.WithTimeout(cfg.RequestTimeout),
		transport.WithTokenSource(a.session),
		transport.WithNotifier(a.toasts),
		transport.WithLogger(a.logger),
	)

	a.guard, err = guard.New(a.session, guard.DefaultRoutes(), a.logger)
	if err != nil {
		return fmt.Errorf("building route guard: %w", err)
	}

	a.login, err = login.New(a.registry, a.session, a.client, a.toasts, a.logger)
	if err != nil {
		return err
	}

	a.persons, err = person.New(a.registry, a.client, a.toasts, a.logger)
	if err != nil {
		return err
	}

	return nil
}

// Authorize checks path against the route guard. A refused path returns the
// decision together with an error wrapping ErrAccessDenied.
func (a *App) Authorize(path string) (guard.Decision, error) {
	decision, err := a.guard.Check(path)
	if err != nil {
		return decision, err
	}
	if !decision.Allowed {
		return decision, fmt.Errorf("%w: %s (go to %s)", ErrAccessDenied, decision.Reason, decision.Redirect)
	}
	return decision, nil
}

// Session returns the global store.
func (a *App) Session() *session.Session {
	return a.session
}

// Toasts returns the toast queue.
func (a *App) Toasts() *toast.Notifier {
	return a.toasts
}

// Login returns the login form store.
func (a *App) Login() *login.View {
	return a.login
}

// Persons returns the person store.
func (a *App) Persons() *person.View {
	return a.persons
}

// Registry returns the store registry.
func (a *App) Registry() *state.Registry {
	return a.registry
}

// StateDir returns the directory the session is persisted in.
func (a *App) StateDir() string {
	return a.files.Dir()
}

// Close detaches every store. The persisted session file is kept.
func (a *App) Close() {
	a.registry.Close()
}
