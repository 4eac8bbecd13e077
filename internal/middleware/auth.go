// Package middleware holds the HTTP middleware for the backend: bearer
// authentication, metrics, request logging, and login rate limiting.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ridelinkhq/ridelink/internal/auth"
	"github.com/ridelinkhq/ridelink/internal/httputil"
	"github.com/ridelinkhq/ridelink/internal/logger"
	"github.com/ridelinkhq/ridelink/internal/models"
	"github.com/ridelinkhq/ridelink/internal/repository"
	"go.uber.org/zap"
)

type authContextKey string

// userContextKey stores the authenticated user in the request context.
const userContextKey authContextKey = "user"

const bearerPrefix = "Bearer "

// Authenticate validates the bearer session token and loads the
// authoritative user record, rejecting with 401 on any failure. The loaded
// user is attached to the request context.
func Authenticate(tokens *auth.TokenManager, users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				httputil.WriteError(w, http.StatusUnauthorized, "No token provided")
				return
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				httputil.WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				logger.Warn("token valid but user lookup failed",
					zap.String("user_id", claims.UserID), zap.Error(err))
				httputil.WriteError(w, http.StatusUnauthorized, "User not found")
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated user attached by Authenticate.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok
}

// ContextWithUser attaches a user to the context. Exported for handler
// tests.
func ContextWithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// extractToken extracts the Bearer token from the request
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, bearerPrefix) {
		return strings.TrimPrefix(authHeader, bearerPrefix)
	}
	return ""
}
