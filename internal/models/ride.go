package models

import "time"

// RideStatus describes the lifecycle of a published ride.
type RideStatus string

const (
	RideStatusActive    RideStatus = "active"
	RideStatusFull      RideStatus = "full"
	RideStatusCancelled RideStatus = "cancelled"
)

// Location is a named point on the map.
type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// RouteInfo carries the rider-supplied route summary. The server never
// computes routes itself.
type RouteInfo struct {
	DistanceKm  float64 `json:"distance"`
	DurationMin float64 `json:"duration"`
}

// Ride is a published ride offer.
type Ride struct {
	ID             string     `json:"id"`
	RiderID        string     `json:"rider_id"`
	RiderName      string     `json:"rider_name"`
	Origin         Location   `json:"origin"`
	Destination    Location   `json:"destination"`
	DepartureTime  time.Time  `json:"departure_time"`
	AvailableSeats int        `json:"available_seats"`
	PricePerSeat   float64    `json:"price_per_seat"`
	Description    string     `json:"description,omitempty"`
	RouteInfo      *RouteInfo `json:"route_info,omitempty"`
	Status         RideStatus `json:"status"`
	PassengerIDs   []string   `json:"passenger_ids"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// HasPassenger reports whether userID already booked a seat on the ride.
func (r *Ride) HasPassenger(userID string) bool {
	for _, id := range r.PassengerIDs {
		if id == userID {
			return true
		}
	}
	return false
}
