// Package server assembles the backend HTTP server and its dependency
// graph.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"

	"github.com/ridelinkhq/ridelink/internal/auth"
	"github.com/ridelinkhq/ridelink/internal/config"
	"github.com/ridelinkhq/ridelink/internal/database"
	"github.com/ridelinkhq/ridelink/internal/logger"
	"github.com/ridelinkhq/ridelink/internal/middleware"
	"github.com/ridelinkhq/ridelink/internal/repository"
	"github.com/ridelinkhq/ridelink/internal/repository/postgres"
	"github.com/ridelinkhq/ridelink/internal/server/handlers"
	"go.uber.org/zap"
)

const defaultShutdownTimeout = 5 * time.Second

// Server owns the backend's http.Server lifecycle.
type Server struct {
	cfg  *config.ServerConfig
	http *http.Server
}

// NewServer creates the Server around the assembled router.
func NewServer(cfg *config.Config, handler http.Handler) *Server {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	return &Server{
		cfg: &cfg.Server,
		http: &http.Server{
			Addr:    addr,
			Handler: handler,
		},
	}
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		logger.Info("Starting server", zap.String("address", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		logger.Info("Shutting down server", zap.Duration("timeout", timeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	case err := <-errChan:
		return err
	}
}

func newPool(cfg *config.Config) (*pgxpool.Pool, error) {
	return database.NewPool(context.Background(), &cfg.Database)
}

func newDB(pool *pgxpool.Pool) postgres.DB {
	return pool
}

func newGoogleVerifier(cfg *config.Config) (auth.IdentityVerifier, error) {
	return auth.NewGoogleVerifier(&cfg.Google)
}

func newTokenManager(cfg *config.Config) *auth.TokenManager {
	return auth.NewTokenManager(&cfg.Auth)
}

func newHealthHandler(pool *pgxpool.Pool) *handlers.HealthHandler {
	return handlers.NewHealthHandler(pool)
}

func newRateLimiter(lc fx.Lifecycle) *middleware.RateLimiter {
	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			limiter.Stop()
			return nil
		},
	})
	return limiter
}

// Module provides the backend server dependencies
var Module = fx.Module("http_server",
	fx.Provide(
		newPool,
		newDB,
		newGoogleVerifier,
		newTokenManager,
		newRateLimiter,
		fx.Annotate(
			postgres.NewUserRepository,
			fx.As(new(repository.UserRepository)),
		),
		fx.Annotate(
			postgres.NewRideRepository,
			fx.As(new(repository.RideRepository)),
		),
		handlers.NewAuthHandler,
		handlers.NewUserHandler,
		handlers.NewRideHandler,
		newHealthHandler,
		NewRouter,
		NewServer,
	),
)
