package models

import "time"

// User represents a registered rider/passenger. The backend owns the
// authoritative record; clients hold a cached snapshot only.
type User struct {
	ID          string    `json:"id"`
	GoogleID    string    `json:"-"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Photo       string    `json:"photo,omitempty"`
	Provider    string    `json:"-"`
	IsRider     bool      `json:"is_rider"`
	IsPassenger bool      `json:"is_passenger"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// Clone returns a deep copy so callers can hand out snapshots without
// exposing shared mutable state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
