package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ridelinkhq/ridelink/internal/models"
	"github.com/ridelinkhq/ridelink/internal/repository"
)

// RideRepository implements repository.RideRepository using PostgreSQL.
// Locations and route summaries are stored as JSONB so the document-shaped
// wire model survives round trips unchanged.
type RideRepository struct {
	db DB
}

// NewRideRepository creates a new PostgreSQL-backed ride repository.
func NewRideRepository(db DB) *RideRepository {
	return &RideRepository{db: db}
}

const rideColumns = "id, rider_id, rider_name, origin, destination, departure_time, available_seats, price_per_seat, description, route_info, status, passenger_ids, created_at, updated_at"

// Create inserts a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *models.Ride) error {
	origin, destination, routeInfo, err := encodeRideDocs(ride)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO rides (id, rider_id, rider_name, origin, destination, departure_time, available_seats, price_per_seat, description, route_info, status, passenger_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = r.db.Exec(ctx, query,
		ride.ID,
		ride.RiderID,
		ride.RiderName,
		origin,
		destination,
		ride.DepartureTime,
		ride.AvailableSeats,
		ride.PricePerSeat,
		ride.Description,
		routeInfo,
		ride.Status,
		ride.PassengerIDs,
		ride.CreatedAt,
		ride.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ride: %w", err)
	}
	return nil
}

// GetByID retrieves a ride by its ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*models.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	return scanRide(r.db.QueryRow(ctx, query, id))
}

// Search lists rides matching the filter, soonest departure first. Empty
// filter fields match everything; text filters match the location name,
// case-insensitively.
func (r *RideRepository) Search(ctx context.Context, filter repository.RideSearch) ([]models.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Origin != "" {
		args = append(args, "%"+filter.Origin+"%")
		query += fmt.Sprintf(" AND origin->>'name' ILIKE $%d", len(args))
	}
	if filter.Destination != "" {
		args = append(args, "%"+filter.Destination+"%")
		query += fmt.Sprintf(" AND destination->>'name' ILIKE $%d", len(args))
	}
	if filter.Date != nil {
		day := filter.Date.UTC().Truncate(24 * time.Hour)
		args = append(args, day, day.Add(24*time.Hour))
		query += fmt.Sprintf(" AND departure_time >= $%d AND departure_time < $%d", len(args)-1, len(args))
	}
	query += " ORDER BY departure_time ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search rides: %w", err)
	}
	defer rows.Close()
	return collectRides(rows)
}

// ListByRider lists every ride published by riderID, newest first.
func (r *RideRepository) ListByRider(ctx context.Context, riderID string) ([]models.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE rider_id = $1 ORDER BY departure_time DESC`
	rows, err := r.db.Query(ctx, query, riderID)
	if err != nil {
		return nil, fmt.Errorf("list rides: %w", err)
	}
	defer rows.Close()
	return collectRides(rows)
}

// Book reserves one seat inside a transaction. The row is locked for the
// duration so two passengers cannot take the last seat.
func (r *RideRepository) Book(ctx context.Context, rideID, passengerID string) (*models.Ride, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin booking: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1 FOR UPDATE`
	ride, err := scanRide(tx.QueryRow(ctx, query, rideID))
	if err != nil {
		return nil, err
	}

	switch {
	case ride.RiderID == passengerID:
		return nil, repository.ErrOwnRide
	case ride.HasPassenger(passengerID):
		return nil, repository.ErrAlreadyBooked
	case ride.Status != models.RideStatusActive || ride.AvailableSeats < 1:
		return nil, repository.ErrRideUnavailable
	}

	ride.AvailableSeats--
	ride.PassengerIDs = append(ride.PassengerIDs, passengerID)
	if ride.AvailableSeats == 0 {
		ride.Status = models.RideStatusFull
	}
	ride.UpdatedAt = time.Now().UTC()

	update := `
		UPDATE rides
		SET available_seats = $1, passenger_ids = $2, status = $3, updated_at = $4
		WHERE id = $5`
	if _, err := tx.Exec(ctx, update, ride.AvailableSeats, ride.PassengerIDs, ride.Status, ride.UpdatedAt, ride.ID); err != nil {
		return nil, fmt.Errorf("book ride: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking: %w", err)
	}
	return ride, nil
}

func encodeRideDocs(ride *models.Ride) (origin, destination, routeInfo []byte, err error) {
	if origin, err = json.Marshal(ride.Origin); err != nil {
		return nil, nil, nil, fmt.Errorf("encode origin: %w", err)
	}
	if destination, err = json.Marshal(ride.Destination); err != nil {
		return nil, nil, nil, fmt.Errorf("encode destination: %w", err)
	}
	if ride.RouteInfo != nil {
		if routeInfo, err = json.Marshal(ride.RouteInfo); err != nil {
			return nil, nil, nil, fmt.Errorf("encode route info: %w", err)
		}
	}
	return origin, destination, routeInfo, nil
}

func scanRide(row pgx.Row) (*models.Ride, error) {
	var (
		ride        models.Ride
		origin      []byte
		destination []byte
		routeInfo   []byte
	)
	err := row.Scan(
		&ride.ID,
		&ride.RiderID,
		&ride.RiderName,
		&origin,
		&destination,
		&ride.DepartureTime,
		&ride.AvailableSeats,
		&ride.PricePerSeat,
		&ride.Description,
		&routeInfo,
		&ride.Status,
		&ride.PassengerIDs,
		&ride.CreatedAt,
		&ride.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan ride: %w", err)
	}

	if err := json.Unmarshal(origin, &ride.Origin); err != nil {
		return nil, fmt.Errorf("decode origin: %w", err)
	}
	if err := json.Unmarshal(destination, &ride.Destination); err != nil {
		return nil, fmt.Errorf("decode destination: %w", err)
	}
	if len(routeInfo) > 0 {
		ride.RouteInfo = &models.RouteInfo{}
		if err := json.Unmarshal(routeInfo, ride.RouteInfo); err != nil {
			return nil, fmt.Errorf("decode route info: %w", err)
		}
	}
	return &ride, nil
}

func collectRides(rows pgx.Rows) ([]models.Ride, error) {
	var rides []models.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, *ride)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rides: %w", err)
	}
	return rides, nil
}
