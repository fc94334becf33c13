package model

import "time"

// Theater is a screening venue.  SeatingCapacity bounds the capacity of
// every showtime scheduled in it.
type Theater struct {
	ID              uint64    // theaters.id
	Name            string    // theaters.name
	Location        string    // theaters.location
	SeatingCapacity int       // theaters.seating_capacity
	CreatedAt       time.Time // theaters.created_at
	UpdatedAt       time.Time // theaters.updated_at
}
