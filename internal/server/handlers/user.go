package handlers

import (
	"net/http"

	"github.com/ridelinkhq/ridelink/internal/httputil"
	"github.com/ridelinkhq/ridelink/internal/middleware"
)

// UserHandler serves the authenticated-user endpoints.
type UserHandler struct{}

// NewUserHandler creates a UserHandler.
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Me handles GET /api/me. The Authenticate middleware already resolved the
// token to an authoritative user record.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "No token provided")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}
