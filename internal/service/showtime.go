package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/movietix/internal/model"
)

// ShowtimeInput creates a showtime.  StartsAt is RFC 3339.  TotalSeats
// defaults to the theater's seating capacity when nil.
type ShowtimeInput struct {
	MovieID          uint64
	TheaterID        uint64
	StartsAt         string
	TicketPriceCents int64
	TotalSeats       *int
}

// ShowtimePatch updates a showtime.  Nil fields are left unchanged.
type ShowtimePatch struct {
	MovieID          *uint64
	TheaterID        *uint64
	StartsAt         *string
	TicketPriceCents *int64
	TotalSeats       *int
}

// ShowtimeView is a showtime with display details and current availability.
type ShowtimeView struct {
	model.Showtime
	MovieTitle     string
	TheaterName    string
	AvailableSeats int
}

// ShowtimeService administers showtimes.  Capacity changes take the same
// per-showtime lock as admission.
type ShowtimeService struct {
	showtimes    ShowtimeStore
	movies       MovieStore
	theaters     TheaterStore
	availability *AvailabilityCalculator
	locks        *KeyedMutex
	log          *zap.Logger
	now          func() time.Time
}

// NewShowtimeService wires showtime administration.
func NewShowtimeService(showtimes ShowtimeStore, movies MovieStore, theaters TheaterStore, ledger BookingLedger, locks *KeyedMutex, log *zap.Logger) *ShowtimeService {
	return &ShowtimeService{
		showtimes:    showtimes,
		movies:       movies,
		theaters:     theaters,
		availability: NewAvailabilityCalculator(showtimes, ledger),
		locks:        locks,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Availability returns the remaining seats of a showtime.
func (s *ShowtimeService) Availability(ctx context.Context, id uint64) (int, error) {
	return s.availability.Available(ctx, id)
}

// Create validates references and stores a new showtime.
func (s *ShowtimeService) Create(ctx context.Context, in ShowtimeInput) (*ShowtimeView, error) {
	if in.MovieID == 0 || in.TheaterID == 0 {
		return nil, fmt.Errorf("%w: movie_id and theater_id are required", model.ErrValidation)
	}
	startsAt, err := parseStart(in.StartsAt)
	if err != nil {
		return nil, err
	}
	if in.TicketPriceCents < 0 {
		return nil, fmt.Errorf("%w: ticket_price_cents must not be negative", model.ErrValidation)
	}
	if in.TotalSeats != nil && *in.TotalSeats <= 0 {
		return nil, fmt.Errorf("%w: total_seats must be positive", model.ErrValidation)
	}

	movie, err := s.movies.GetMovie(ctx, in.MovieID)
	if err != nil {
		return nil, err
	}
	theater, err := s.theaters.GetTheater(ctx, in.TheaterID)
	if err != nil {
		return nil, err
	}

	seats := theater.SeatingCapacity
	if in.TotalSeats != nil {
		seats = *in.TotalSeats
	}
	if seats > theater.SeatingCapacity {
		return nil, fmt.Errorf("%w: total_seats %d exceeds theater capacity %d", model.ErrValidation, seats, theater.SeatingCapacity)
	}

	st := &model.Showtime{
		MovieID:          movie.ID,
		TheaterID:        theater.ID,
		StartsAt:         startsAt,
		TicketPriceCents: in.TicketPriceCents,
		TotalSeats:       seats,
	}
	if err := s.showtimes.CreateShowtime(ctx, st); err != nil {
		return nil, err
	}
	s.log.Info("showtime created",
		zap.Uint64("showtime_id", st.ID),
		zap.Uint64("movie_id", st.MovieID),
		zap.Uint64("theater_id", st.TheaterID),
		zap.Int("total_seats", st.TotalSeats))
	return &ShowtimeView{Showtime: *st, MovieTitle: movie.Title, TheaterName: theater.Name, AvailableSeats: seats}, nil
}

// Get returns one showtime with its availability.
func (s *ShowtimeService) Get(ctx context.Context, id uint64) (*ShowtimeView, error) {
	st, err := s.showtimes.GetShowtime(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, []model.Showtime{*st})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// List returns showtimes matching f ordered by start time.
func (s *ShowtimeService) List(ctx context.Context, f model.ShowtimeFilter) ([]ShowtimeView, error) {
	sts, err := s.showtimes.ListShowtimes(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, sts)
}

// Upcoming returns showtimes that have not started yet.
func (s *ShowtimeService) Upcoming(ctx context.Context) ([]ShowtimeView, error) {
	return s.List(ctx, model.ShowtimeFilter{StartsAfter: s.now()})
}

// Update applies p to showtime id.  Lowering TotalSeats below the seats of
// confirmed bookings fails with model.ErrConflict.
func (s *ShowtimeService) Update(ctx context.Context, id uint64, p ShowtimePatch) (*ShowtimeView, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	st, err := s.showtimes.GetShowtime(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.MovieID != nil {
		if _, err := s.movies.GetMovie(ctx, *p.MovieID); err != nil {
			return nil, err
		}
		st.MovieID = *p.MovieID
	}
	if p.TheaterID != nil {
		st.TheaterID = *p.TheaterID
	}
	if p.StartsAt != nil {
		if st.StartsAt, err = parseStart(*p.StartsAt); err != nil {
			return nil, err
		}
	}
	if p.TicketPriceCents != nil {
		if *p.TicketPriceCents < 0 {
			return nil, fmt.Errorf("%w: ticket_price_cents must not be negative", model.ErrValidation)
		}
		st.TicketPriceCents = *p.TicketPriceCents
	}
	if p.TotalSeats != nil {
		if *p.TotalSeats <= 0 {
			return nil, fmt.Errorf("%w: total_seats must be positive", model.ErrValidation)
		}
		st.TotalSeats = *p.TotalSeats
	}

	theater, err := s.theaters.GetTheater(ctx, st.TheaterID)
	if err != nil {
		return nil, err
	}
	if st.TotalSeats > theater.SeatingCapacity {
		return nil, fmt.Errorf("%w: total_seats %d exceeds theater capacity %d", model.ErrValidation, st.TotalSeats, theater.SeatingCapacity)
	}

	if err := s.showtimes.UpdateShowtime(ctx, st); err != nil {
		return nil, err
	}
	views, err := s.views(ctx, []model.Showtime{*st})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Delete removes a showtime no booking references.
func (s *ShowtimeService) Delete(ctx context.Context, id uint64) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	if err := s.showtimes.DeleteShowtime(ctx, id); err != nil {
		return err
	}
	s.log.Info("showtime deleted", zap.Uint64("showtime_id", id))
	return nil
}

func (s *ShowtimeService) views(ctx context.Context, sts []model.Showtime) ([]ShowtimeView, error) {
	movies := map[uint64]string{}
	theaters := map[uint64]string{}
	out := make([]ShowtimeView, 0, len(sts))
	for i := range sts {
		st := &sts[i]
		avail, err := s.availability.ForShowtime(ctx, st)
		if err != nil {
			return nil, err
		}
		v := ShowtimeView{Showtime: *st, AvailableSeats: avail}

		if title, ok := movies[st.MovieID]; ok {
			v.MovieTitle = title
		} else if m, err := s.movies.GetMovie(ctx, st.MovieID); err == nil {
			v.MovieTitle, movies[st.MovieID] = m.Title, m.Title
		} else {
			v.MovieTitle, movies[st.MovieID] = UnknownMovie, UnknownMovie
		}

		if name, ok := theaters[st.TheaterID]; ok {
			v.TheaterName = name
		} else if t, err := s.theaters.GetTheater(ctx, st.TheaterID); err == nil {
			v.TheaterName, theaters[st.TheaterID] = t.Name, t.Name
		} else {
			v.TheaterName, theaters[st.TheaterID] = UnknownTheater, UnknownTheater
		}
		out = append(out, v)
	}
	return out, nil
}

func parseStart(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: starts_at must be RFC 3339, e.g. 2026-01-02T19:30:00Z", model.ErrValidation)
	}
	return t.UTC(), nil
}
