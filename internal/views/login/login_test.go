package login

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vyrodovalexey/adminstate/internal/auth"
	"github.com/vyrodovalexey/adminstate/internal/config"
	"github.com/vyrodovalexey/adminstate/internal/model"
	"github.com/vyrodovalexey/adminstate/internal/server"
	"github.com/vyrodovalexey/adminstate/internal/session"
	"github.com/vyrodovalexey/adminstate/internal/state"
	"github.com/vyrodovalexey/adminstate/internal/store"
	"github.com/vyrodovalexey/adminstate/internal/toast"
	"github.com/vyrodovalexey/adminstate/internal/transport"
)

type fixture struct {
	view    *View
	session *session.Session
	toasts  *toast.Notifier
	api     *server.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	users, err := auth.NewBasicAuthenticator("admin:" + string(hash) + ":person")
	if err != nil {
		t.Fatalf("NewBasicAuthenticator() error = %v", err)
	}
	api := server.New(&config.Config{ServerPort: 8080, TokenTTL: time.Hour}, nil, store.NewMemoryStore(), users)
	ts := httptest.NewServer(api.Router())
	t.Cleanup(ts.Close)

	registry := state.NewRegistry(nil)
	t.Cleanup(registry.Close)
	s, err := session.New(registry)
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}
	toasts := toast.New(s, nil)
	client := transport.New(ts.URL, transport.WithTokenSource(s), transport.WithNotifier(toasts))

	view, err := New(registry, s, client, toasts, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &fixture{view: view, session: s, toasts: toasts, api: api}
}

func TestView_Submit_Success(t *testing.T) {
	// Arrange
	f := newFixture(t)
	if err := f.view.SetCredentials("admin", "secret"); err != nil {
		t.Fatalf("SetCredentials() error = %v", err)
	}

	// Act
	err := f.view.Submit(context.Background())

	// Assert
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !f.session.IsAuthenticated() || f.session.Username() != "admin" {
		t.Errorf("session = %v, want signed in as admin", f.session.Snapshot())
	}
	if perms := f.session.Permissions(); len(perms) != 1 || perms[0] != "person" {
		t.Errorf("Permissions() = %v, want [person]", perms)
	}
	if f.view.field(FieldPassword) != "" {
		t.Error("password must be cleared after login")
	}
	if f.view.field(FieldUsername) != "admin" {
		t.Error("username must be kept after login")
	}
	toasts := f.toasts.List()
	if len(toasts) != 1 || toasts[0].Type != model.ToastSuccess || toasts[0].Username != "admin" {
		t.Errorf("toasts = %+v, want one welcome toast", toasts)
	}
	if f.session.Loading() {
		t.Error("loading must be off after login")
	}
}

func TestView_Submit_Failures(t *testing.T) {
	tests := []struct {
		name         string
		username     string
		password     string
		wantErr      error
		wantToasts   int
		wantRecorded string
	}{
		{
			name:         "wrong password",
			username:     "admin",
			password:     "nope",
			wantErr:      transport.ErrTransport,
			wantToasts:   1,
			wantRecorded: "Login failed: invalid username or password",
		},
		{
			name:         "missing username",
			password:     "secret",
			wantErr:      model.ErrEmptyUsername,
			wantRecorded: model.ErrEmptyUsername.Error(),
		},
		{
			name:         "missing password",
			username:     "admin",
			wantErr:      model.ErrEmptyPassword,
			wantRecorded: model.ErrEmptyPassword.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture(t)
			if err := f.view.SetCredentials(tt.username, tt.password); err != nil {
				t.Fatalf("SetCredentials() error = %v", err)
			}

			// Act
			err := f.view.Submit(context.Background())

			// Assert
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Submit() error = %v, want %v", err, tt.wantErr)
			}
			if f.session.IsAuthenticated() {
				t.Error("session must stay signed out")
			}
			errs := f.view.Manager().Errors()
			if len(errs) != 1 || errs[0] != tt.wantRecorded {
				t.Errorf("Errors() = %v, want [%s]", errs, tt.wantRecorded)
			}
			if got := len(f.toasts.List()); got != tt.wantToasts {
				t.Errorf("toasts = %d, want %d", got, tt.wantToasts)
			}
		})
	}
}

func TestView_Submit_ClearsPreviousErrors(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.view.Manager().AddError("stale")
	_ = f.view.SetCredentials("admin", "secret")

	// Act
	err := f.view.Submit(context.Background())

	// Assert
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if f.view.Manager().HasErrors() {
		t.Errorf("Errors() = %v, want none", f.view.Manager().Errors())
	}
}

func TestView_Logout(t *testing.T) {
	// Arrange
	f := newFixture(t)
	_ = f.view.SetCredentials("admin", "secret")
	if err := f.view.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	token, _ := f.session.Token(context.Background())

	// Act
	err := f.view.Logout(context.Background())

	// Assert
	if err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if f.session.IsAuthenticated() {
		t.Error("session must be signed out")
	}
	if _, err := f.api.Tokens().Lookup(token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("token still valid on the server: %v", err)
	}
}

func TestView_Logout_SignedOut(t *testing.T) {
	f := newFixture(t)

	if err := f.view.Logout(context.Background()); err != nil {
		t.Errorf("Logout() error = %v, want nil", err)
	}
}
