package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/movietix/internal/authctx"
	"github.com/iliyamo/movietix/internal/model"
	"github.com/iliyamo/movietix/internal/queue"
)

// Placeholders used when a booking's movie or theater can no longer be
// resolved.
const (
	UnknownMovie   = "Unknown Movie"
	UnknownTheater = "Unknown Theater"
)

// BookingView is a booking enriched for display.
type BookingView struct {
	model.Booking
	MovieTitle       string
	TheaterName      string
	ShowTime         *time.Time
	TicketPriceCents int64
}

// BookingService serves booking queries and the post-admission lifecycle.
type BookingService struct {
	ledger    BookingLedger
	showtimes ShowtimeStore
	movies    MovieStore
	theaters  TheaterStore
	events    *EventEmitter
	log       *zap.Logger
}

// NewBookingService wires the booking lifecycle.
func NewBookingService(ledger BookingLedger, showtimes ShowtimeStore, movies MovieStore, theaters TheaterStore, events *EventEmitter, log *zap.Logger) *BookingService {
	return &BookingService{
		ledger:    ledger,
		showtimes: showtimes,
		movies:    movies,
		theaters:  theaters,
		events:    events,
		log:       log,
	}
}

// Get returns a booking visible to caller.  Bookings of other users are
// reported as not found.
func (s *BookingService) Get(ctx context.Context, caller authctx.Principal, id uint64) (*BookingView, error) {
	b, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	views := s.enrich(ctx, []model.Booking{*b})
	return &views[0], nil
}

// ListMine returns the caller's bookings, newest first.
func (s *BookingService) ListMine(ctx context.Context, caller authctx.Principal) ([]BookingView, error) {
	return s.ListByUser(ctx, caller.UserID)
}

// ListByUser returns a user's bookings, newest first.
func (s *BookingService) ListByUser(ctx context.Context, userID uint64) ([]BookingView, error) {
	bs, err := s.ledger.ListBookingsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, bs), nil
}

// ListAll returns every booking, newest first.
func (s *BookingService) ListAll(ctx context.Context) ([]BookingView, error) {
	bs, err := s.ledger.ListBookings(ctx)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, bs), nil
}

// Cancel releases the seats of one of the caller's bookings.
func (s *BookingService) Cancel(ctx context.Context, caller authctx.Principal, id uint64) (*BookingView, error) {
	b, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, b, model.BookingCancelled)
}

// UpdateStatus moves a booking to status if the transition table allows it.
func (s *BookingService) UpdateStatus(ctx context.Context, id uint64, status string) (*BookingView, error) {
	next, err := model.ParseBookingStatus(status)
	if err != nil {
		return nil, err
	}
	b, err := s.ledger.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, b, next)
}

// Delete removes a cancelled booking.  Confirmed bookings hold seats and
// must be cancelled first.
func (s *BookingService) Delete(ctx context.Context, id uint64) error {
	b, err := s.ledger.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if b.IsConfirmed() {
		return fmt.Errorf("%w: booking %s is still confirmed", model.ErrConflict, b.Reference)
	}
	return s.ledger.DeleteBooking(ctx, id)
}

func (s *BookingService) transition(ctx context.Context, b *model.Booking, next model.BookingStatus) (*BookingView, error) {
	if err := b.Status.Transition(next); err != nil {
		return nil, err
	}
	if err := s.ledger.UpdateBookingStatus(ctx, b.ID, b.Status, next); err != nil {
		return nil, err
	}
	prev := b.Status
	b.Status = next
	b.UpdatedAt = time.Now().UTC()

	s.log.Info("booking status changed",
		zap.Uint64("booking_id", b.ID),
		zap.String("booking_reference", b.Reference),
		zap.String("from", string(prev)),
		zap.String("to", string(next)))
	if next == model.BookingCancelled {
		s.events.Emit(queue.RoutingBookingCancelled, b)
	}

	views := s.enrich(ctx, []model.Booking{*b})
	return &views[0], nil
}

func (s *BookingService) owned(ctx context.Context, caller authctx.Principal, id uint64) (*model.Booking, error) {
	if caller.UserID == 0 {
		return nil, model.ErrUnauthorized
	}
	b, err := s.ledger.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(b.UserID) {
		return nil, fmt.Errorf("booking %d: %w", id, model.ErrNotFound)
	}
	return b, nil
}

// enrich attaches movie, theater and show details.  Lookups are memoised per
// call; a failed lookup degrades to a placeholder instead of failing.
func (s *BookingService) enrich(ctx context.Context, bs []model.Booking) []BookingView {
	showtimes := map[uint64]*model.Showtime{}
	movies := map[uint64]string{}
	theaters := map[uint64]string{}

	out := make([]BookingView, 0, len(bs))
	for _, b := range bs {
		v := BookingView{Booking: b, MovieTitle: UnknownMovie, TheaterName: UnknownTheater}

		st, seen := showtimes[b.ShowtimeID]
		if !seen {
			var err error
			st, err = s.showtimes.GetShowtime(ctx, b.ShowtimeID)
			if err != nil {
				s.log.Warn("enrich booking: showtime lookup failed", zap.Uint64("showtime_id", b.ShowtimeID), zap.Error(err))
				st = nil
			}
			showtimes[b.ShowtimeID] = st
		}
		if st != nil {
			at := st.StartsAt
			v.ShowTime = &at
			v.TicketPriceCents = st.TicketPriceCents
			v.MovieTitle = s.movieTitle(ctx, movies, st.MovieID)
			v.TheaterName = s.theaterName(ctx, theaters, st.TheaterID)
		}
		out = append(out, v)
	}
	return out
}

func (s *BookingService) movieTitle(ctx context.Context, cache map[uint64]string, id uint64) string {
	if t, ok := cache[id]; ok {
		return t
	}
	title := UnknownMovie
	if m, err := s.movies.GetMovie(ctx, id); err == nil {
		title = m.Title
	} else {
		s.log.Warn("enrich booking: movie lookup failed", zap.Uint64("movie_id", id), zap.Error(err))
	}
	cache[id] = title
	return title
}

func (s *BookingService) theaterName(ctx context.Context, cache map[uint64]string, id uint64) string {
	if n, ok := cache[id]; ok {
		return n
	}
	name := UnknownTheater
	if t, err := s.theaters.GetTheater(ctx, id); err == nil {
		name = t.Name
	} else {
		s.log.Warn("enrich booking: theater lookup failed", zap.Uint64("theater_id", id), zap.Error(err))
	}
	cache[id] = name
	return name
}
