package app

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vyrodovalexey/adminstate/internal/auth"
	"github.com/vyrodovalexey/adminstate/internal/config"
	"github.com/vyrodovalexey/adminstate/internal/guard"
	"github.com/vyrodovalexey/adminstate/internal/model"
	"github.com/vyrodovalexey/adminstate/internal/server"
	"github.com/vyrodovalexey/adminstate/internal/store"
	"github.com/vyrodovalexey/adminstate/internal/transport"
)

// newAPI starts a reference server with admin/secret and one person.
func newAPI(t *testing.T) (string, *model.Person) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	users, err := auth.NewBasicAuthenticator("admin:" + string(hash) + ":person")
	if err != nil {
		t.Fatalf("NewBasicAuthenticator() error = %v", err)
	}

	persons := store.NewMemoryStore()
	ann, err := persons.Create(context.Background(),
		&model.PersonInput{Name: "Ann", Email: "ann@example.com"},
		store.Owner{ID: "admin", Username: "admin"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	api := server.New(&config.Config{ServerPort: 8080, TokenTTL: time.Hour}, nil, persons, users)
	ts := httptest.NewServer(api.Router())
	t.Cleanup(ts.Close)
	return ts.URL, ann
}

func testConfig(apiURL, stateDir string) *config.Config {
	return &config.Config{
		APIURL:         apiURL,
		LogLevel:       "info",
		RequestTimeout: 5 * time.Second,
		StateDir:       stateDir,
	}
}

func newApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func TestNew_RegistersStores(t *testing.T) {
	// Arrange & Act
	a := newApp(t, testConfig("", t.TempDir()))

	// Assert
	names := a.Registry().Names()
	want := []string{"globalStore", "personStore", "userStore"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestNew_EmptyStateDir(t *testing.T) {
	_, err := New(testConfig("", ""), nil)

	if err == nil {
		t.Fatal("New() with empty state dir should fail")
	}
}

func TestApp_LoginListGet(t *testing.T) {
	// Arrange
	apiURL, ann := newAPI(t)
	a := newApp(t, testConfig(apiURL, t.TempDir()))
	ctx := context.Background()

	// Act
	_, deniedErr := a.Authorize("/person")

	if err := a.Login().SetCredentials("admin", "secret"); err != nil {
		t.Fatalf("SetCredentials() error = %v", err)
	}
	if err := a.Login().Submit(ctx); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	decision, allowedErr := a.Authorize("/person/" + ann.ID)
	listErr := a.Persons().LoadPage(ctx, 1, 10)
	getErr := a.Persons().Load(ctx, ann.ID)

	// Assert
	if !errors.Is(deniedErr, ErrAccessDenied) {
		t.Errorf("Authorize() before login error = %v, want ErrAccessDenied", deniedErr)
	}
	if allowedErr != nil || decision.Route != "person-detail" {
		t.Errorf("Authorize() after login = %+v, %v", decision, allowedErr)
	}
	if listErr != nil || getErr != nil {
		t.Fatalf("LoadPage() = %v, Load() = %v", listErr, getErr)
	}
	if list := a.Persons().List(); len(list) != 1 || list[0]["email"] != "ann@example.com" {
		t.Errorf("List() = %v", list)
	}
	if name := a.Persons().Current()["name"]; name != "Ann" {
		t.Errorf("Current()[name] = %v, want Ann", name)
	}
}

func TestApp_SessionSurvivesRestart(t *testing.T) {
	// Arrange
	apiURL, _ := newAPI(t)
	dir := t.TempDir()
	first := newApp(t, testConfig(apiURL, dir))
	_ = first.Login().SetCredentials("admin", "secret")
	if err := first.Login().Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	first.Close()

	// Act
	second := newApp(t, testConfig(apiURL, dir))

	// Assert
	if second.Session().Username() != "admin" || !second.Session().IsAuthenticated() {
		t.Errorf("session after restart = %v", second.Session().Snapshot())
	}
	if len(second.Toasts().List()) != 1 {
		t.Errorf("toasts after restart = %v, want the welcome toast", second.Toasts().List())
	}
	if err := second.Persons().LoadPage(context.Background(), 1, 10); err != nil {
		t.Errorf("LoadPage() with rehydrated token error = %v", err)
	}
	if second.Session().Loading() {
		t.Error("loading must not be persisted")
	}
}

func TestApp_Authorize(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		wantErr      error
		wantRedirect string
	}{
		{name: "home", path: "/"},
		{name: "login", path: "/login"},
		{name: "protected", path: "/person", wantErr: ErrAccessDenied, wantRedirect: guard.LoginPath},
		{name: "unknown", path: "/settings", wantErr: guard.ErrRouteNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newApp(t, testConfig("", t.TempDir()))

			decision, err := a.Authorize(tt.path)

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Authorize() error = %v, want %v", err, tt.wantErr)
			}
			if decision.Redirect != tt.wantRedirect {
				t.Errorf("Redirect = %q, want %q", decision.Redirect, tt.wantRedirect)
			}
		})
	}
}

func TestApp_MissingAPIURL(t *testing.T) {
	// Arrange
	a := newApp(t, testConfig("", t.TempDir()))
	_ = a.Login().SetCredentials("admin", "secret")

	// Act
	err := a.Login().Submit(context.Background())

	// Assert
	if !errors.Is(err, transport.ErrConfiguration) {
		t.Errorf("Submit() error = %v, want configuration error", err)
	}
	if a.Login().Manager().HasErrors() {
		t.Error("configuration errors must not be recorded")
	}
}
