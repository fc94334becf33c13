package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/iliyamo/movietix/internal/model"
)

// ConfirmedSeats sums the seats of CONFIRMED bookings of a showtime.
func (s *Store) ConfirmedSeats(_ context.Context, showtimeID uint64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.confirmedSeatsLocked(showtimeID), nil
}

func (s *Store) confirmedSeatsLocked(showtimeID uint64) int {
	total := 0
	for _, b := range s.bookings {
		if b.ShowtimeID == showtimeID && b.IsConfirmed() {
			total += b.SeatCount
		}
	}
	return total
}

// InsertBooking re-checks capacity and reference uniqueness under the write
// lock, so the check and the insert are one atomic step.
func (s *Store) InsertBooking(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.showtimes[b.ShowtimeID]
	if !ok {
		return fmt.Errorf("showtime %d: %w", b.ShowtimeID, model.ErrNotFound)
	}
	if _, taken := s.refs[b.Reference]; taken {
		return model.ErrDuplicateReference
	}
	if b.IsConfirmed() {
		if booked := s.confirmedSeatsLocked(st.ID); booked+b.SeatCount > st.TotalSeats {
			return fmt.Errorf("%w: requested %d seats, %d available", model.ErrCapacityExceeded, b.SeatCount, max(st.TotalSeats-booked, 0))
		}
	}

	b.ID = s.nextID()
	b.CreatedAt = s.now()
	b.UpdatedAt = b.CreatedAt
	s.bookings[b.ID] = *b
	s.refs[b.Reference] = b.ID
	return nil
}

// GetBooking returns a copy of the stored booking.
func (s *Store) GetBooking(_ context.Context, id uint64) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %d: %w", id, model.ErrNotFound)
	}
	return &b, nil
}

// ListBookings returns every booking, newest first.
func (s *Store) ListBookings(_ context.Context) ([]model.Booking, error) {
	return s.filterBookings(func(model.Booking) bool { return true }), nil
}

// ListBookingsByUser returns a user's bookings, newest first.
func (s *Store) ListBookingsByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	return s.filterBookings(func(b model.Booking) bool { return b.UserID == userID }), nil
}

func (s *Store) filterBookings(keep func(model.Booking) bool) []model.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Booking, 0)
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	// IDs grow monotonically, so they order by creation more reliably than
	// timestamps of equal resolution.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// UpdateBookingStatus sets the status only if it is still from.
func (s *Store) UpdateBookingStatus(_ context.Context, id uint64, from, to model.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return fmt.Errorf("booking %d: %w", id, model.ErrNotFound)
	}
	if b.Status != from {
		return fmt.Errorf("%w: booking %d is %s, not %s", model.ErrInvalidTransition, id, b.Status, from)
	}
	b.Status = to
	b.UpdatedAt = s.now()
	s.bookings[id] = b
	return nil
}

// DeleteBooking removes a booking and frees its reference.
func (s *Store) DeleteBooking(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return fmt.Errorf("booking %d: %w", id, model.ErrNotFound)
	}
	delete(s.refs, b.Reference)
	delete(s.bookings, id)
	return nil
}
