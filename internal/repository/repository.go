// Package repository defines the persistence interfaces the HTTP layer is
// written against.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ridelinkhq/ridelink/internal/models"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrRideUnavailable indicates a booking attempt on a ride that is not
	// active or has no seats left.
	ErrRideUnavailable = errors.New("ride is not available for booking")

	// ErrOwnRide indicates a rider tried to book their own ride.
	ErrOwnRide = errors.New("cannot book your own ride")

	// ErrAlreadyBooked indicates the passenger already holds a seat.
	ErrAlreadyBooked = errors.New("ride already booked")
)

// UserRepository persists user records.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// RideSearch is a direct filter pass-through: empty fields match everything.
type RideSearch struct {
	Origin      string
	Destination string
	Date        *time.Time
	Status      models.RideStatus
}

// RideRepository persists ride records.
type RideRepository interface {
	Create(ctx context.Context, ride *models.Ride) error
	GetByID(ctx context.Context, id string) (*models.Ride, error)
	Search(ctx context.Context, filter RideSearch) ([]models.Ride, error)
	ListByRider(ctx context.Context, riderID string) ([]models.Ride, error)

	// Book reserves one seat for passengerID and returns the updated ride.
	Book(ctx context.Context, rideID, passengerID string) (*models.Ride, error)
}
