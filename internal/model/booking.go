package model

import (
	"fmt"
	"strings"
	"time"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// bookingTransitions lists the allowed edges.  CANCELLED is terminal.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingConfirmed: {BookingCancelled},
}

// ParseBookingStatus accepts a status name in any case.
func ParseBookingStatus(s string) (BookingStatus, error) {
	st := BookingStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case BookingConfirmed, BookingCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown booking status %q", ErrValidation, s)
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition validates the edge s -> next.
func (s BookingStatus) Transition(next BookingStatus) error {
	if !s.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return nil
}

// Booking is a reservation of SeatCount seats against one showtime.
// TotalPriceCents is computed at admission and never recalculated.
//
// Fields:
//
//	ID              – primary key identifier.
//	UserID          – customer who booked.
//	ShowtimeID      – showtime the seats belong to.
//	SeatCount       – number of seats, at least one.
//	TotalPriceCents – SeatCount × ticket price at admission time.
//	Status          – CONFIRMED or CANCELLED.
//	Reference       – unique human-facing code, e.g. BK-1A2B3C4D.
type Booking struct {
	ID              uint64        // bookings.id
	UserID          uint64        // bookings.user_id
	ShowtimeID      uint64        // bookings.showtime_id
	SeatCount       int           // bookings.seat_count
	TotalPriceCents int64         // bookings.total_price_cents
	Status          BookingStatus // bookings.status
	Reference       string        // bookings.booking_reference
	CreatedAt       time.Time     // bookings.created_at
	UpdatedAt       time.Time     // bookings.updated_at
}

// IsConfirmed reports whether the booking still holds seats.
func (b Booking) IsConfirmed() bool { return b.Status == BookingConfirmed }
