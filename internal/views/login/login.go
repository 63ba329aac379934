// Package login is the sign-in form store.
package login

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/adminstate/internal/model"
	"github.com/vyrodovalexey/adminstate/internal/session"
	"github.com/vyrodovalexey/adminstate/internal/state"
	"github.com/vyrodovalexey/adminstate/internal/transport"
	"github.com/vyrodovalexey/adminstate/internal/views"
)

// StoreName is the registry name of the login store.
const StoreName = "userStore"

// Login store fields.
const (
	FieldUsername = "username"
	FieldPassword = "password"
)

// API endpoints.
const (
	loginEndpoint  = "/auth/login"
	logoutEndpoint = "/auth/logout"
)

// Notifier receives the welcome toast.
type Notifier interface {
	state.Notifier
	SuccessFor(username, message string)
}

// Schema returns the login store's fields and their defaults.
func Schema() map[string]any {
	return map[string]any{
		FieldUsername:     "",
		FieldPassword:     "",
		state.ErrorsField: []string{},
	}
}

// View drives the sign-in form.
type View struct {
	manager  *state.Manager
	session  *session.Session
	client   state.Requester
	notifier Notifier
	logger   *zap.Logger
}

// New builds the login store in registry.
func New(registry *state.Registry, s *session.Session, client state.Requester, notifier Notifier, logger *zap.Logger) (*View, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	m, err := state.New(registry, StoreName, Schema(),
		state.WithLogger(logger),
		state.WithNotifier(notifier),
		state.WithRequester(client),
	)
	if err != nil {
		return nil, fmt.Errorf("creating login store: %w", err)
	}

	return &View{
		manager:  m,
		session:  s,
		client:   client,
		notifier: notifier,
		logger:   logger,
	}, nil
}

// Manager returns the login store's manager.
func (v *View) Manager() *state.Manager {
	return v.manager
}

// SetCredentials fills the form.
func (v *View) SetCredentials(username, password string) error {
	return v.manager.SetFieldsValue(map[string]any{
		FieldUsername: username,
		FieldPassword: password,
	}).Err()
}

// Submit posts the form. On success the identity goes to the session, the
// password is cleared and a welcome toast is shown. Failures are recorded in
// the login store.
func (v *View) Submit(ctx context.Context) error {
	v.manager.ClearErrors()

	req := model.LoginRequest{
		Username: v.field(FieldUsername),
		Password: v.field(FieldPassword),
	}
	if err := req.Validate(); err != nil {
		v.manager.AddError(err.Error())
		return fmt.Errorf("validating credentials: %w", err)
	}

	var resp model.LoginResponse
	err := v.session.WithLoading(func() error {
		r, err := v.client.Do(ctx, transport.Request{
			Endpoint: loginEndpoint,
			Method:   http.MethodPost,
			Data:     req,
		})
		if err != nil {
			return err
		}
		return r.Decode(&resp)
	})
	if err != nil {
		views.Record(v.manager, "Login failed", err)
		return fmt.Errorf("logging in %s: %w", req.Username, err)
	}

	if err := v.session.SignIn(resp.Token, resp.Username, resp.Permissions); err != nil {
		return err
	}
	if err := v.manager.SetFieldValue(FieldPassword, ""); err != nil {
		return err
	}

	v.notifier.SuccessFor(resp.Username, "Welcome, "+resp.Username+"!")
	return nil
}

// Logout revokes the token on the server and clears the session. The session
// is cleared even when the server cannot be reached.
func (v *View) Logout(ctx context.Context) error {
	if !v.session.IsAuthenticated() {
		return nil
	}

	_, err := v.client.Do(ctx, transport.Request{
		Endpoint:                  logoutEndpoint,
		Method:                    http.MethodPost,
		UseAuthToken:              true,
		SuppressErrorNotification: true,
	})
	if err != nil && !errors.Is(err, transport.ErrTransport) {
		return fmt.Errorf("logging out: %w", err)
	}
	if err != nil {
		v.logger.Warn("logout not confirmed by server", zap.Error(err))
	}

	if err := v.session.SignOut(); err != nil {
		return err
	}
	return v.manager.SetFieldValue(FieldPassword, "")
}

func (v *View) field(key string) string {
	value, _ := v.manager.Get(key)
	str, _ := value.(string)
	return str
}
