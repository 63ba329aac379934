package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

type staticToken struct {
	token string
	err   error
}

func (s staticToken) Token(_ context.Context) (string, error) {
	return s.token, s.err
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Error(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func TestClient_Do_GETDecodesJSON(t *testing.T) {
	// Arrange
	var gotQuery url.Values
	var gotAccept, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotAccept = r.Header.Get("Accept")
		gotRequestID = r.Header.Get(RequestIDHeader)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":1}],"meta":{"page":1}}`))
	}))
	defer srv.Close()

	client := New(srv.URL)

	// Act
	resp, err := client.Do(context.Background(), Request{
		Endpoint: "/person",
		Params:   url.Values{"page": {"1"}, "perPage": {"10"}},
	})

	// Assert
	if err != nil {
		t.Fatalf("Do() unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	object, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("Data type = %T, want map[string]any", resp.Data)
	}
	if _, ok := object["data"].([]any); !ok {
		t.Errorf("data field type = %T, want []any", object["data"])
	}
	if gotQuery.Get("page") != "1" || gotQuery.Get("perPage") != "10" {
		t.Errorf("query = %v, want page=1 perPage=10", gotQuery)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q, want application/json", gotAccept)
	}
	if gotRequestID == "" {
		t.Error("X-Request-ID header should be set")
	}
}

func TestClient_Do_POSTEncodesBody(t *testing.T) {
	// Arrange
	var gotMethod, gotContentType string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":"abc"}`))
	}))
	defer srv.Close()

	client := New(srv.URL)

	// Act
	resp, err := client.Do(context.Background(), Request{
		Endpoint: "/auth/login",
		Method:   http.MethodPost,
		Data:     map[string]string{"username": "admin", "password": "secret"},
		Headers:  map[string]string{"X-Custom": "1"},
	})

	// Assert
	if err != nil {
		t.Fatalf("Do() unexpected error: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
	if gotBody["username"] != "admin" {
		t.Errorf("body username = %v, want admin", gotBody["username"])
	}

	var decoded struct {
		Token string `json:"token"`
	}
	if err := resp.Decode(&decoded); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if decoded.Token != "abc" {
		t.Errorf("token = %q, want abc", decoded.Token)
	}
}

func TestClient_Do_BearerToken(t *testing.T) {
	tests := []struct {
		name       string
		tokens     TokenSource
		useAuth    bool
		wantHeader string
		wantErr    error
	}{
		{
			name:       "token added",
			tokens:     staticToken{token: "tok-1"},
			useAuth:    true,
			wantHeader: "Bearer tok-1",
		},
		{
			name:       "no auth requested",
			tokens:     staticToken{token: "tok-1"},
			useAuth:    false,
			wantHeader: "",
		},
		{
			name:    "session not initialized",
			tokens:  nil,
			useAuth: true,
			wantErr: ErrSessionNotInitialized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			var gotHeader string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotHeader = r.Header.Get("Authorization")
				_, _ = w.Write([]byte(`{}`))
			}))
			defer srv.Close()

			client := New(srv.URL, WithTokenSource(tt.tokens))

			// Act
			_, err := client.Do(context.Background(), Request{Endpoint: "/me", UseAuthToken: tt.useAuth})

			// Assert
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Do() error = %v, want %v", err, tt.wantErr)
				}
				if !errors.Is(err, ErrConfiguration) {
					t.Errorf("Do() error = %v, want ErrConfiguration", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Do() unexpected error: %v", err)
			}
			if gotHeader != tt.wantHeader {
				t.Errorf("Authorization = %q, want %q", gotHeader, tt.wantHeader)
			}
		})
	}
}

func TestClient_Do_MissingBaseURL(t *testing.T) {
	// Arrange
	notifier := &recordingNotifier{}
	client := New("  ", WithNotifier(notifier))

	// Act
	_, err := client.Do(context.Background(), Request{Endpoint: "/person"})

	// Assert
	if !errors.Is(err, ErrMissingBaseURL) {
		t.Fatalf("Do() error = %v, want ErrMissingBaseURL", err)
	}
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("Do() error = %v, want ErrConfiguration", err)
	}
	if len(notifier.all()) != 0 {
		t.Errorf("configuration errors should not be notified, got %v", notifier.all())
	}
}

func TestClient_Do_ErrorResponse(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		suppress    bool
		wantMessage string
		wantNotify  []string
	}{
		{
			name:        "message from body",
			status:      http.StatusNotFound,
			body:        `{"code":404,"message":"person not found"}`,
			wantMessage: "person not found",
			wantNotify:  []string{"person not found"},
		},
		{
			name:       "no message",
			status:     http.StatusInternalServerError,
			body:       `oops`,
			wantNotify: []string{"GET /person/1: unexpected status 500"},
		},
		{
			name:        "suppressed notification",
			status:      http.StatusUnauthorized,
			body:        `{"message":"invalid token"}`,
			suppress:    true,
			wantMessage: "invalid token",
			wantNotify:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			notifier := &recordingNotifier{}
			client := New(srv.URL, WithNotifier(notifier))

			// Act
			_, err := client.Do(context.Background(), Request{
				Endpoint:                  "/person/1",
				SuppressErrorNotification: tt.suppress,
			})

			// Assert
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("Do() error = %v, want *Error", err)
			}
			if !errors.Is(err, ErrTransport) {
				t.Errorf("Do() error should match ErrTransport")
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
			got := notifier.all()
			if len(got) != len(tt.wantNotify) {
				t.Fatalf("notifications = %v, want %v", got, tt.wantNotify)
			}
			for i := range got {
				if got[i] != tt.wantNotify[i] {
					t.Errorf("notification[%d] = %q, want %q", i, got[i], tt.wantNotify[i])
				}
			}
		})
	}
}

func TestClient_Do_NetworkError(t *testing.T) {
	// Arrange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	base := srv.URL
	srv.Close()

	notifier := &recordingNotifier{}
	client := New(base, WithNotifier(notifier), WithTimeout(2*time.Second))

	// Act
	_, err := client.Do(context.Background(), Request{Endpoint: "/person"})

	// Assert
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Do() error = %v, want ErrTransport", err)
	}
	if errors.Is(err, ErrConfiguration) {
		t.Error("network errors must not be configuration errors")
	}
	if len(notifier.all()) != 1 {
		t.Errorf("notifications = %v, want exactly one", notifier.all())
	}
}

func TestClient_Do_NonJSONBody(t *testing.T) {
	// Arrange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "plain text")
	}))
	defer srv.Close()

	// Act
	resp, err := New(srv.URL).Do(context.Background(), Request{Endpoint: "/text"})

	// Assert
	if err != nil {
		t.Fatalf("Do() unexpected error: %v", err)
	}
	if s, ok := resp.Data.(string); !ok || !strings.Contains(s, "plain text") {
		t.Errorf("Data = %#v, want raw string", resp.Data)
	}
}

func TestClient_Do_ContextCancelled(t *testing.T) {
	// Arrange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Act
	_, err := New(srv.URL).Do(ctx, Request{Endpoint: "/person"})

	// Assert
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "with message",
			err:  &Error{Method: "GET", Endpoint: "/x", StatusCode: 400, Message: "bad"},
			want: "GET /x: 400 bad",
		},
		{
			name: "with cause",
			err:  &Error{Method: "GET", Endpoint: "/x", Err: errors.New("dial failed")},
			want: "GET /x: dial failed",
		},
		{
			name: "status only",
			err:  &Error{Method: "DELETE", Endpoint: "/x", StatusCode: 502},
			want: "DELETE /x: unexpected status 502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}
