// Package service holds the booking domain logic: catalog and showtime
// administration, seat availability, booking admission and the booking
// lifecycle, plus account management.  Storage is reached through the
// interfaces below, implemented by internal/repository (MySQL) and
// internal/repository/memory.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/movietix/internal/model"
	"github.com/iliyamo/movietix/internal/queue"
)

// MovieStore persists movies.  Delete fails with model.ErrConflict while a
// showtime references the movie.
type MovieStore interface {
	CreateMovie(ctx context.Context, m *model.Movie) error
	GetMovie(ctx context.Context, id uint64) (*model.Movie, error)
	ListMovies(ctx context.Context) ([]model.Movie, error)
	SearchMoviesByTitle(ctx context.Context, fragment string) ([]model.Movie, error)
	UpdateMovie(ctx context.Context, m *model.Movie) error
	DeleteMovie(ctx context.Context, id uint64) error
}

// TheaterStore persists theaters.  Delete fails with model.ErrConflict while
// a showtime references the theater, and Update does the same when a
// showtime has more seats than the new capacity.
type TheaterStore interface {
	CreateTheater(ctx context.Context, t *model.Theater) error
	GetTheater(ctx context.Context, id uint64) (*model.Theater, error)
	ListTheaters(ctx context.Context) ([]model.Theater, error)
	UpdateTheater(ctx context.Context, t *model.Theater) error
	DeleteTheater(ctx context.Context, id uint64) error
}

// ShowtimeStore persists showtimes.
//
// UpdateShowtime must refuse (model.ErrConflict) to lower TotalSeats below
// the seats already held by confirmed bookings, checking under the same
// lock the ledger uses for admission.  DeleteShowtime fails with
// model.ErrConflict while any booking references the showtime.
type ShowtimeStore interface {
	CreateShowtime(ctx context.Context, s *model.Showtime) error
	GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error)
	ListShowtimes(ctx context.Context, f model.ShowtimeFilter) ([]model.Showtime, error)
	UpdateShowtime(ctx context.Context, s *model.Showtime) error
	DeleteShowtime(ctx context.Context, id uint64) error
}

// BookingLedger owns booking records.
//
// InsertBooking is the only write that adds seats.  It must atomically
// re-check that the showtime's confirmed seats plus b.SeatCount stay within
// capacity (model.ErrCapacityExceeded otherwise) and must report a reference
// collision as model.ErrDuplicateReference.  On success it fills ID and
// timestamps.
//
// UpdateBookingStatus is a compare-and-set: it fails with
// model.ErrInvalidTransition when the stored status is no longer from.
type BookingLedger interface {
	ConfirmedSeats(ctx context.Context, showtimeID uint64) (int, error)
	InsertBooking(ctx context.Context, b *model.Booking) error
	GetBooking(ctx context.Context, id uint64) (*model.Booking, error)
	ListBookings(ctx context.Context) ([]model.Booking, error)
	ListBookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	UpdateBookingStatus(ctx context.Context, id uint64, from, to model.BookingStatus) error
	DeleteBooking(ctx context.Context, id uint64) error
}

// UserStore persists accounts.  CreateUser reports a taken email as
// model.ErrConflict.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id uint64) (*model.User, error)
	UpdateUserRole(ctx context.Context, id uint64, role string) error
}

// TokenStore keeps hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, hash string, exp time.Time) error
	// ValidateRefresh returns the owner of an active, unexpired token.
	ValidateRefresh(ctx context.Context, hash string) (uint64, error)
	// RevokeRefresh succeeds for exactly one caller per active token; later
	// calls get model.ErrNotFound.
	RevokeRefresh(ctx context.Context, hash string) error
	RevokeAllRefresh(ctx context.Context, userID uint64) error
}

// EventPublisher delivers booking lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}
