package authclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeProviderCredential_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/google", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "google-id-token", body["idToken"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"token":"session-token","user":{"id":"1","name":"John Doe","email":"john@example.com","is_rider":true,"is_passenger":true}}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	result, err := client.ExchangeProviderCredential(context.Background(), "google-id-token")
	require.NoError(t, err)
	assert.Equal(t, "session-token", result.Token)
	require.NotNil(t, result.User)
	assert.Equal(t, "John Doe", result.User.Name)
	assert.True(t, result.User.IsRider)
}

func TestExchangeProviderCredential_EmptyCredential(t *testing.T) {
	client := New("http://127.0.0.1:0", time.Second)
	_, err := client.ExchangeProviderCredential(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestExchangeProviderCredential_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"success":false,"message":"Invalid or expired Google token"}`, ErrAuthRejected},
		{"bad request", http.StatusBadRequest, `{"success":false,"message":"idToken is required"}`, ErrInvalidInput},
		{"server error", http.StatusInternalServerError, `{"success":false,"message":"Server error during authentication"}`, ErrServer},
		{"empty error envelope", http.StatusUnauthorized, ``, ErrAuthRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := New(srv.URL, time.Second)
			_, err := client.ExchangeProviderCredential(context.Background(), "google-id-token")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExchangeProviderCredential_OKWithoutTokenIsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	_, err := client.ExchangeProviderCredential(context.Background(), "google-id-token")
	assert.ErrorIs(t, err, ErrServer)
}

func TestExchangeProviderCredential_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := New(srv.URL, time.Second)
	_, err := client.ExchangeProviderCredential(context.Background(), "google-id-token")
	assert.ErrorIs(t, err, ErrServer)
}

func TestFetchCurrentUser_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/me", r.URL.Path)
		require.Equal(t, "Bearer session-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"success":true,"user":{"id":"1","name":"John Doe","email":"john@example.com"}}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	res := client.FetchCurrentUser(context.Background(), "session-token")
	assert.Equal(t, FetchOK, res.Status)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	require.NotNil(t, res.User)
	assert.Equal(t, "john@example.com", res.User.Email)
}

func TestFetchCurrentUser_UnauthorizedIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"Invalid or expired token"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	res := client.FetchCurrentUser(context.Background(), "expired")
	assert.Equal(t, FetchRejected, res.Status)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestFetchCurrentUser_ServerErrorIsIndeterminate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	res := client.FetchCurrentUser(context.Background(), "session-token")
	assert.Equal(t, FetchIndeterminate, res.Status)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Error(t, res.Err)
}

func TestFetchCurrentUser_NetworkErrorIsIndeterminateStatusZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := New(srv.URL, time.Second)
	res := client.FetchCurrentUser(context.Background(), "session-token")
	assert.Equal(t, FetchIndeterminate, res.Status)
	assert.Equal(t, 0, res.StatusCode)
	assert.Error(t, res.Err)
}

func TestFetchCurrentUser_MalformedPayloadIsIndeterminate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`)) // 200 with no user
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	res := client.FetchCurrentUser(context.Background(), "session-token")
	assert.Equal(t, FetchIndeterminate, res.Status)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Error(t, res.Err)
}
