package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ridelinkhq/ridelink/internal/httputil"
	"github.com/ridelinkhq/ridelink/internal/logger"
	"github.com/ridelinkhq/ridelink/internal/middleware"
	"github.com/ridelinkhq/ridelink/internal/models"
	"github.com/ridelinkhq/ridelink/internal/repository"
	"go.uber.org/zap"
)

// RideHandler serves ride listing, publishing, and booking.
type RideHandler struct {
	rides repository.RideRepository
}

// NewRideHandler creates a RideHandler.
func NewRideHandler(rides repository.RideRepository) *RideHandler {
	return &RideHandler{rides: rides}
}

// publishRideRequest is the JSON body for ride publishing.
type publishRideRequest struct {
	Origin         models.Location   `json:"origin"`
	Destination    models.Location   `json:"destination"`
	DepartureTime  time.Time         `json:"departure_time"`
	AvailableSeats int               `json:"available_seats"`
	PricePerSeat   float64           `json:"price_per_seat"`
	Description    string            `json:"description"`
	RouteInfo      *models.RouteInfo `json:"route_info"`
}

func (req *publishRideRequest) validate() string {
	switch {
	case req.Origin.Name == "":
		return "origin is required"
	case req.Destination.Name == "":
		return "destination is required"
	case req.DepartureTime.IsZero():
		return "departure_time is required"
	case req.AvailableSeats < 1:
		return "available_seats must be at least 1"
	case req.PricePerSeat < 0:
		return "price_per_seat must not be negative"
	}
	return ""
}

// Search handles GET /api/rides with optional origin, destination, and date
// filters. The query is a direct pass-through to the store; only active
// rides are returned.
func (h *RideHandler) Search(w http.ResponseWriter, r *http.Request) {
	filter := repository.RideSearch{
		Origin:      r.URL.Query().Get("origin"),
		Destination: r.URL.Query().Get("destination"),
		Status:      models.RideStatusActive,
	}
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		filter.Date = &date
	}

	rides, err := h.rides.Search(r.Context(), filter)
	if err != nil {
		logger.Error("ride search failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.writeRides(w, rides)
}

// Publish handles POST /api/rides.
func (h *RideHandler) Publish(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "No token provided")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req publishRideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	now := time.Now().UTC()
	ride := &models.Ride{
		ID:             uuid.New().String(),
		RiderID:        user.ID,
		RiderName:      user.Name,
		Origin:         req.Origin,
		Destination:    req.Destination,
		DepartureTime:  req.DepartureTime,
		AvailableSeats: req.AvailableSeats,
		PricePerSeat:   req.PricePerSeat,
		Description:    req.Description,
		RouteInfo:      req.RouteInfo,
		Status:         models.RideStatusActive,
		PassengerIDs:   []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.rides.Create(r.Context(), ride); err != nil {
		logger.Error("ride create failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"ride":    ride,
	})
}

// Get handles GET /api/rides/{id}, the ride detail lookup.
func (h *RideHandler) Get(w http.ResponseWriter, r *http.Request) {
	rideID := chi.URLParam(r, "id")
	ride, err := h.rides.GetByID(r.Context(), rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "Ride not found")
			return
		}
		logger.Error("ride lookup failed", zap.String("ride_id", rideID), zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"ride":    ride,
	})
}

// Mine handles GET /api/rides/mine, listing the caller's published rides.
func (h *RideHandler) Mine(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "No token provided")
		return
	}

	rides, err := h.rides.ListByRider(r.Context(), user.ID)
	if err != nil {
		logger.Error("ride list failed", zap.String("rider_id", user.ID), zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.writeRides(w, rides)
}

// Book handles POST /api/rides/{id}/book.
func (h *RideHandler) Book(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "No token provided")
		return
	}

	rideID := chi.URLParam(r, "id")
	ride, err := h.rides.Book(r.Context(), rideID, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			httputil.WriteError(w, http.StatusNotFound, "Ride not found")
		case errors.Is(err, repository.ErrOwnRide):
			httputil.WriteError(w, http.StatusBadRequest, "Cannot book your own ride")
		case errors.Is(err, repository.ErrAlreadyBooked):
			httputil.WriteError(w, http.StatusConflict, "Ride already booked")
		case errors.Is(err, repository.ErrRideUnavailable):
			httputil.WriteError(w, http.StatusConflict, "Ride is not available for booking")
		default:
			logger.Error("ride booking failed", zap.String("ride_id", rideID), zap.Error(err))
			httputil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"ride":    ride,
	})
}

func (h *RideHandler) writeRides(w http.ResponseWriter, rides []models.Ride) {
	if rides == nil {
		rides = []models.Ride{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"rides":   rides,
	})
}
