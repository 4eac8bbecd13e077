package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridelinkhq/ridelink/internal/auth"
	"github.com/ridelinkhq/ridelink/internal/config"
	"github.com/ridelinkhq/ridelink/internal/models"
	"github.com/ridelinkhq/ridelink/internal/repository"
)

type stubUserRepo struct {
	user *models.User
	err  error
}

func (r *stubUserRepo) Create(ctx context.Context, user *models.User) error { return nil }

func (r *stubUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.user == nil || r.user.ID != id {
		return nil, repository.ErrNotFound
	}
	return r.user, nil
}

func (r *stubUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) Update(ctx context.Context, user *models.User) error { return nil }

func newAuthTestServer(t *testing.T, users repository.UserRepository) (*auth.TokenManager, http.Handler) {
	t.Helper()
	tokens := auth.NewTokenManager(&config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})
	handler := Authenticate(tokens, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		w.Header().Set("X-User-ID", user.ID)
		w.WriteHeader(http.StatusOK)
	}))
	return tokens, handler
}

func TestAuthenticate_ValidToken(t *testing.T) {
	user := &models.User{ID: "u-1", Email: "john@example.com"}
	tokens, handler := newAuthTestServer(t, &stubUserRepo{user: user})

	token, err := tokens.Issue("u-1", "john@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1", rec.Header().Get("X-User-ID"))
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	_, handler := newAuthTestServer(t, &stubUserRepo{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"No token provided"}`, rec.Body.String())
}

func TestAuthenticate_MalformedHeader(t *testing.T) {
	_, handler := newAuthTestServer(t, &stubUserRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Token abc") // not a Bearer scheme
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	_, handler := newAuthTestServer(t, &stubUserRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Invalid or expired token"}`, rec.Body.String())
}

func TestAuthenticate_TokenForDeletedUser(t *testing.T) {
	tokens, handler := newAuthTestServer(t, &stubUserRepo{}) // no users

	token, err := tokens.Issue("u-gone", "gone@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"User not found"}`, rec.Body.String())
}
