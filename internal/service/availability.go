package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/movietix/internal/model"
)

// AvailabilityCalculator derives the remaining seats of a showtime from the
// booking ledger.  It never writes.
type AvailabilityCalculator struct {
	showtimes ShowtimeStore
	ledger    BookingLedger
}

// NewAvailabilityCalculator wires the calculator to its stores.
func NewAvailabilityCalculator(showtimes ShowtimeStore, ledger BookingLedger) *AvailabilityCalculator {
	return &AvailabilityCalculator{showtimes: showtimes, ledger: ledger}
}

// Available returns capacity minus confirmed seats for showtimeID.  A missing
// showtime yields model.ErrNotFound.
func (a *AvailabilityCalculator) Available(ctx context.Context, showtimeID uint64) (int, error) {
	st, err := a.showtimes.GetShowtime(ctx, showtimeID)
	if err != nil {
		return 0, err
	}
	return a.ForShowtime(ctx, st)
}

// ForShowtime is Available for an already loaded showtime.
func (a *AvailabilityCalculator) ForShowtime(ctx context.Context, st *model.Showtime) (int, error) {
	booked, err := a.ledger.ConfirmedSeats(ctx, st.ID)
	if err != nil {
		return 0, fmt.Errorf("sum confirmed seats of showtime %d: %w", st.ID, err)
	}
	return remainingSeats(st.TotalSeats, booked), nil
}

// remainingSeats clamps at zero so an over-tallied ledger never reports
// negative availability.
func remainingSeats(capacity, booked int) int {
	if booked >= capacity {
		return 0
	}
	return capacity - booked
}
