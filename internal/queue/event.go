// Package queue carries booking lifecycle events over RabbitMQ: the payload
// type, a publisher used by the booking services and an audit consumer.
package queue

import "time"

// Exchange and routing keys for booking events.
const (
	ExchangeName = "bookings"
	ExchangeKind = "topic"

	RoutingBookingConfirmed = "booking.confirmed"
	RoutingBookingCancelled = "booking.cancelled"
)

// BookingEvent is published whenever a booking is admitted or cancelled.  It
// carries enough for consumers to log or notify without reading the primary
// database.
type BookingEvent struct {
	Type            string    `json:"type"` // routing key of the event
	BookingID       uint64    `json:"booking_id"`
	Reference       string    `json:"booking_reference"`
	UserID          uint64    `json:"user_id"`
	ShowtimeID      uint64    `json:"showtime_id"`
	SeatCount       int       `json:"seat_count"`
	TotalPriceCents int64     `json:"total_price_cents"`
	Status          string    `json:"status"`
	OccurredAt      time.Time `json:"occurred_at"`
}
