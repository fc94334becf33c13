package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/iliyamo/movietix/internal/model"
)

// CreateShowtime checks that movie and theater exist, as the foreign keys
// of the MySQL schema do, and that the seats fit the theater.
func (s *Store) CreateShowtime(_ context.Context, st *model.Showtime) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRefsLocked(st); err != nil {
		return err
	}
	st.ID = s.nextID()
	st.CreatedAt = s.now()
	st.UpdatedAt = st.CreatedAt
	s.showtimes[st.ID] = *st
	return nil
}

// GetShowtime returns a copy of the stored showtime.
func (s *Store) GetShowtime(_ context.Context, id uint64) (*model.Showtime, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.showtimes[id]
	if !ok {
		return nil, fmt.Errorf("showtime %d: %w", id, model.ErrNotFound)
	}
	return &st, nil
}

// ListShowtimes returns matching showtimes ordered by start time.
func (s *Store) ListShowtimes(_ context.Context, f model.ShowtimeFilter) ([]model.Showtime, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Showtime, 0)
	for _, st := range s.showtimes {
		if f.Matches(st) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateShowtime refuses to shrink capacity below the confirmed seats.
func (s *Store) UpdateShowtime(_ context.Context, st *model.Showtime) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.showtimes[st.ID]
	if !ok {
		return fmt.Errorf("showtime %d: %w", st.ID, model.ErrNotFound)
	}
	if err := s.checkRefsLocked(st); err != nil {
		return err
	}
	if booked := s.confirmedSeatsLocked(st.ID); st.TotalSeats < booked {
		return fmt.Errorf("%w: showtime %d already has %d confirmed seats", model.ErrConflict, st.ID, booked)
	}
	st.CreatedAt = cur.CreatedAt
	st.UpdatedAt = s.now()
	s.showtimes[st.ID] = *st
	return nil
}

// DeleteShowtime refuses while any booking, confirmed or cancelled,
// references the showtime.
func (s *Store) DeleteShowtime(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.showtimes[id]; !ok {
		return fmt.Errorf("showtime %d: %w", id, model.ErrNotFound)
	}
	for _, b := range s.bookings {
		if b.ShowtimeID == id {
			return fmt.Errorf("%w: showtime %d has bookings", model.ErrConflict, id)
		}
	}
	delete(s.showtimes, id)
	return nil
}

func (s *Store) checkRefsLocked(st *model.Showtime) error {
	if _, ok := s.movies[st.MovieID]; !ok {
		return fmt.Errorf("movie %d: %w", st.MovieID, model.ErrNotFound)
	}
	th, ok := s.theaters[st.TheaterID]
	if !ok {
		return fmt.Errorf("theater %d: %w", st.TheaterID, model.ErrNotFound)
	}
	if st.TotalSeats > th.SeatingCapacity {
		return fmt.Errorf("%w: total_seats %d exceeds theater capacity %d", model.ErrConflict, st.TotalSeats, th.SeatingCapacity)
	}
	return nil
}
