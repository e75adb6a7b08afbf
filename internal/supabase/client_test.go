package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignUp(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		expectedID string
		expectErr  bool
	}{
		{name: "Without email confirmation", status: 200, body: `{"user":{"id":"u-1"}}`, expectedID: "u-1"},
		{name: "With email confirmation", status: 200, body: `{"id":"u-2"}`, expectedID: "u-2"},
		{name: "Missing id", status: 200, body: `{}`, expectErr: true},
		{name: "Already registered", status: 422, body: `{"msg":"User already registered"}`, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/auth/v1/signup", r.URL.Path)
				assert.Equal(t, "anon", r.Header.Get("apikey"))
				var payload map[string]interface{}
				_ = json.NewDecoder(r.Body).Decode(&payload)
				assert.Equal(t, "ana@example.com", payload["email"])
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(Config{BaseURL: server.URL, AnonKey: "anon"})
			id, err := client.SignUp(context.Background(), "ana@example.com", "segredo123", nil)

			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedID, id)
		})
	}
}

func TestSignInWithPassword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600,"user":{"id":"u-1","email":"ana@example.com"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, AnonKey: "anon"})
	session, err := client.SignInWithPassword(context.Background(), "ana@example.com", "segredo123")

	require.NoError(t, err)
	assert.Equal(t, "at", session.AccessToken)
	assert.Equal(t, "u-1", session.User.ID)
}

func TestDeleteUserError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "Bearer service", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"msg":"User not found"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, ServiceRoleKey: "service"})
	err := client.DeleteUser(context.Background(), "u-404")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
