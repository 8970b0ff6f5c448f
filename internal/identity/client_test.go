package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateUserSendsServiceKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/users" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer service-key" {
			t.Errorf("expected the service key bearer, got %q", got)
		}
		if got := r.Header.Get("apikey"); got != "api-key" {
			t.Errorf("expected the apikey header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"acct-1","email":"child-x@child.invalid","user_metadata":{"role":"child","nickname":"alice"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "api-key", "service-key", "")
	account, err := client.CreateUser(context.Background(), CreateUserParams{
		Email:        "child-x@child.invalid",
		Password:     "pw",
		Metadata:     Metadata{Role: "child", Nickname: "alice"},
		EmailConfirm: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.ID != "acct-1" {
		t.Errorf("expected acct-1, got %s", account.ID)
	}
	if account.Metadata.Nickname != "alice" {
		t.Errorf("expected metadata to round-trip, got %+v", account.Metadata)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"msg":"over limit"}`, ErrRateLimited},
		{"email exists code", http.StatusUnprocessableEntity, `{"error_code":"email_exists","msg":"taken"}`, ErrEmailTaken},
		{"already registered message", http.StatusBadRequest, `{"msg":"User already registered"}`, ErrEmailTaken},
		{"invalid email", http.StatusBadRequest, `{"error_code":"validation_failed","msg":"Unable to validate email address: invalid format"}`, ErrInvalidEmail},
		{"unauthorized", http.StatusUnauthorized, `{"msg":"bad credentials"}`, ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, "api-key", "service-key", "")
			_, err := client.CreateUser(context.Background(), CreateUserParams{Email: "a@b.com"})
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("expected %v, got %v", tt.sentinel, err)
			}
		})
	}
}

func TestUnknownErrorKeepsProviderDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"msg":"database exploded"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "api-key", "service-key", "")
	_, err := client.CreateUser(context.Background(), CreateUserParams{Email: "a@b.com"})

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected a ProviderError, got %v", err)
	}
	if provErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", provErr.StatusCode)
	}
}

func TestSignInWithPassword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected request %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600,"user":{"id":"acct-1","email":"parent@example.com"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "api-key", "service-key", "")
	session, err := client.SignInWithPassword(context.Background(), "parent@example.com", "pw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.RefreshToken != "rt" {
		t.Errorf("expected refresh token rt, got %s", session.RefreshToken)
	}
	if session.Account == nil || session.Account.ID != "acct-1" {
		t.Errorf("expected the user to be attached, got %+v", session.Account)
	}
}

func TestIsOfflineOnConnectionFailure(t *testing.T) {
	// A closed server yields a connection error through the transport.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, "api-key", "service-key", "")
	_, err := client.SignInWithPassword(context.Background(), "parent@example.com", "pw")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsOffline(err) {
		t.Errorf("expected a connection failure to classify as offline, got %v", err)
	}
}

func TestClassifyMessages(t *testing.T) {
	tests := []struct {
		err     error
		message string
	}{
		{ErrRateLimited, "Too many registration attempts. Please try again later."},
		{ErrEmailTaken, "An account with this email already exists."},
		{ErrInvalidEmail, "The email address is not valid."},
		{errors.New("anything else"), "Failed to create child account."},
	}

	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.message {
			t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.message)
		}
	}
}
