package model

import "time"

// Showtime is a scheduled screening of a movie in a theater.  TotalSeats is
// the capacity that admission checks against; the remaining seats are never
// stored and are always derived from the confirmed bookings.
//
// Fields:
//
//	ID               – primary key identifier.
//	MovieID          – screened movie (non-owning reference).
//	TheaterID        – venue (non-owning reference).
//	StartsAt         – start time in UTC.
//	TicketPriceCents – price of one seat in cents, never negative.
//	TotalSeats       – seat capacity, positive and at most the theater's.
type Showtime struct {
	ID               uint64    // showtimes.id
	MovieID          uint64    // showtimes.movie_id
	TheaterID        uint64    // showtimes.theater_id
	StartsAt         time.Time // showtimes.starts_at
	TicketPriceCents int64     // showtimes.ticket_price_cents
	TotalSeats       int       // showtimes.total_seats
	CreatedAt        time.Time // showtimes.created_at
	UpdatedAt        time.Time // showtimes.updated_at
}

// ShowtimeFilter narrows a showtime listing.  Zero values mean "any".
type ShowtimeFilter struct {
	MovieID   uint64
	TheaterID uint64
	// StartsAfter keeps only showtimes starting strictly after this instant.
	StartsAfter time.Time
}

// Matches reports whether s passes the filter.
func (f ShowtimeFilter) Matches(s Showtime) bool {
	if f.MovieID != 0 && s.MovieID != f.MovieID {
		return false
	}
	if f.TheaterID != 0 && s.TheaterID != f.TheaterID {
		return false
	}
	if !f.StartsAfter.IsZero() && !s.StartsAt.After(f.StartsAfter) {
		return false
	}
	return true
}
