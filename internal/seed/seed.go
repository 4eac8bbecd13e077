// Package seed loads demo users and rides from a YAML fixture file into the
// store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/ridelinkhq/ridelink/internal/logger"
	"github.com/ridelinkhq/ridelink/internal/models"
	"github.com/ridelinkhq/ridelink/internal/repository"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Fixture is the YAML shape of a seed file.
type Fixture struct {
	Users []UserFixture `yaml:"users"`
	Rides []RideFixture `yaml:"rides"`
}

type UserFixture struct {
	Name        string `yaml:"name"`
	Email       string `yaml:"email"`
	Photo       string `yaml:"photo"`
	IsRider     *bool  `yaml:"is_rider"`
	IsPassenger *bool  `yaml:"is_passenger"`
}

type LocationFixture struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lng  float64 `yaml:"lng"`
}

type RideFixture struct {
	RiderEmail     string          `yaml:"rider_email"`
	Origin         LocationFixture `yaml:"origin"`
	Destination    LocationFixture `yaml:"destination"`
	DepartureTime  time.Time       `yaml:"departure_time"`
	AvailableSeats int             `yaml:"available_seats"`
	PricePerSeat   float64         `yaml:"price_per_seat"`
	Description    string          `yaml:"description"`
}

// Parse reads and validates a fixture file.
func Parse(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	for i, u := range f.Users {
		if u.Email == "" || u.Name == "" {
			return nil, fmt.Errorf("user %d: name and email are required", i)
		}
	}
	for i, r := range f.Rides {
		if r.RiderEmail == "" {
			return nil, fmt.Errorf("ride %d: rider_email is required", i)
		}
		if r.AvailableSeats < 1 {
			return nil, fmt.Errorf("ride %d: available_seats must be at least 1", i)
		}
	}
	return &f, nil
}

// Run inserts the fixture records. Users already present (by email) are
// reused rather than duplicated.
func Run(ctx context.Context, f *Fixture, users repository.UserRepository, rides repository.RideRepository) error {
	byEmail := make(map[string]*models.User, len(f.Users))

	for _, uf := range f.Users {
		existing, err := users.GetByEmail(ctx, uf.Email)
		if err == nil {
			byEmail[uf.Email] = existing
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("lookup user %s: %w", uf.Email, err)
		}

		now := time.Now().UTC()
		user := &models.User{
			ID:          uuid.New().String(),
			Name:        uf.Name,
			Email:       uf.Email,
			Photo:       uf.Photo,
			Provider:    "google",
			IsRider:     uf.IsRider == nil || *uf.IsRider,
			IsPassenger: uf.IsPassenger == nil || *uf.IsPassenger,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("create user %s: %w", uf.Email, err)
		}
		byEmail[uf.Email] = user
		logger.Info("seeded user", zap.String("email", user.Email))
	}

	for i, rf := range f.Rides {
		rider, ok := byEmail[rf.RiderEmail]
		if !ok {
			return fmt.Errorf("ride %d: rider %s not in fixture users", i, rf.RiderEmail)
		}

		now := time.Now().UTC()
		ride := &models.Ride{
			ID:             uuid.New().String(),
			RiderID:        rider.ID,
			RiderName:      rider.Name,
			Origin:         models.Location(rf.Origin),
			Destination:    models.Location(rf.Destination),
			DepartureTime:  rf.DepartureTime,
			AvailableSeats: rf.AvailableSeats,
			PricePerSeat:   rf.PricePerSeat,
			Description:    rf.Description,
			Status:         models.RideStatusActive,
			PassengerIDs:   []string{},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := rides.Create(ctx, ride); err != nil {
			return fmt.Errorf("create ride %d: %w", i, err)
		}
		logger.Info("seeded ride",
			zap.String("origin", ride.Origin.Name),
			zap.String("destination", ride.Destination.Name))
	}

	return nil
}
