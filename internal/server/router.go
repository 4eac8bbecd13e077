package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ridelinkhq/ridelink/internal/auth"
	"github.com/ridelinkhq/ridelink/internal/middleware"
	"github.com/ridelinkhq/ridelink/internal/repository"
	"github.com/ridelinkhq/ridelink/internal/server/handlers"
)

// NewRouter wires every backend route. /auth/google is public but rate
// limited; the /api surface behind it requires a valid session token.
func NewRouter(
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	rideHandler *handlers.RideHandler,
	healthHandler *handlers.HealthHandler,
	tokens *auth.TokenManager,
	users repository.UserRepository,
	limiter *middleware.RateLimiter,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogging)
	r.Use(middleware.Metrics)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ridelink API"))
	})
	r.Get("/api/health", healthHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.With(limiter.Limit).Post("/auth/google", authHandler.GoogleLogin)

	authenticate := middleware.Authenticate(tokens, users)
	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/api/me", userHandler.Me)
		// Older clients knew this route without the /api prefix.
		r.Get("/me", userHandler.Me)

		r.Route("/api/rides", func(r chi.Router) {
			r.Get("/", rideHandler.Search)
			r.Post("/", rideHandler.Publish)
			r.Get("/mine", rideHandler.Mine)
			r.Get("/{id}", rideHandler.Get)
			r.Post("/{id}/book", rideHandler.Book)
		})
	})

	return r
}
