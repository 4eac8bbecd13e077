package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ridelinkhq/ridelink/internal/httputil"
)

// Pinger reports store connectivity; satisfied by pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves GET /api/health.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health reports server and database status.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	connected := h.db.Ping(ctx) == nil
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"server": "running",
		"database": map[string]interface{}{
			"connected": connected,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
