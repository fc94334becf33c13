package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/movietix/internal/authctx"
	"github.com/iliyamo/movietix/internal/model"
	"github.com/iliyamo/movietix/internal/queue"
)

// AdmissionService is the only path that creates bookings.  Admission for a
// given showtime is serialized in-process by a KeyedMutex shared with
// ShowtimeService, and the ledger re-validates capacity atomically on insert
// so that several server instances cannot oversell either.
type AdmissionService struct {
	showtimes    ShowtimeStore
	ledger       BookingLedger
	availability *AvailabilityCalculator
	locks        *KeyedMutex
	events       *EventEmitter
	log          *zap.Logger
	newReference func() string
}

// AdmissionOption customises an AdmissionService.
type AdmissionOption func(*AdmissionService)

// WithReferenceGenerator replaces NewBookingReference.
func WithReferenceGenerator(gen func() string) AdmissionOption {
	return func(s *AdmissionService) { s.newReference = gen }
}

// NewAdmissionService wires the admission path.
func NewAdmissionService(
	showtimes ShowtimeStore,
	ledger BookingLedger,
	locks *KeyedMutex,
	events *EventEmitter,
	log *zap.Logger,
	opts ...AdmissionOption,
) *AdmissionService {
	s := &AdmissionService{
		showtimes:    showtimes,
		ledger:       ledger,
		availability: NewAvailabilityCalculator(showtimes, ledger),
		locks:        locks,
		events:       events,
		log:          log,
		newReference: NewBookingReference,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Admit books seatCount seats of showtimeID for the caller.  It is
// all-or-nothing: on any error the ledger is unchanged.
//
// Errors: model.ErrValidation (seatCount < 1, checked before any store
// access), model.ErrUnauthorized, model.ErrNotFound (showtime),
// model.ErrCapacityExceeded, model.ErrConflict (no free reference).
func (s *AdmissionService) Admit(ctx context.Context, caller authctx.Principal, showtimeID uint64, seatCount int) (*model.Booking, error) {
	if seatCount < 1 {
		return nil, fmt.Errorf("%w: seat_count must be at least 1", model.ErrValidation)
	}
	if showtimeID == 0 {
		return nil, fmt.Errorf("%w: showtime_id is required", model.ErrValidation)
	}
	if caller.UserID == 0 {
		return nil, fmt.Errorf("%w: booking requires an authenticated user", model.ErrUnauthorized)
	}

	unlock := s.locks.Lock(showtimeID)
	defer unlock()

	st, err := s.showtimes.GetShowtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	available, err := s.availability.ForShowtime(ctx, st)
	if err != nil {
		return nil, err
	}
	if available < seatCount {
		s.log.Info("booking rejected",
			zap.Uint64("showtime_id", showtimeID),
			zap.Uint64("user_id", caller.UserID),
			zap.Int("requested", seatCount),
			zap.Int("available", available))
		return nil, fmt.Errorf("%w: requested %d seats, %d available", model.ErrCapacityExceeded, seatCount, available)
	}

	b := &model.Booking{
		UserID:          caller.UserID,
		ShowtimeID:      st.ID,
		SeatCount:       seatCount,
		TotalPriceCents: int64(seatCount) * st.TicketPriceCents,
		Status:          model.BookingConfirmed,
	}
	if err := s.insert(ctx, b); err != nil {
		return nil, err
	}

	s.log.Info("booking confirmed",
		zap.Uint64("booking_id", b.ID),
		zap.String("booking_reference", b.Reference),
		zap.Uint64("showtime_id", b.ShowtimeID),
		zap.Uint64("user_id", b.UserID),
		zap.Int("seats", b.SeatCount),
		zap.Int64("total_price_cents", b.TotalPriceCents))
	s.events.Emit(queue.RoutingBookingConfirmed, b)
	return b, nil
}

// insert stores b under a fresh reference, regenerating it when the unique
// index reports a collision.
func (s *AdmissionService) insert(ctx context.Context, b *model.Booking) error {
	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		b.Reference = s.newReference()
		err := s.ledger.InsertBooking(ctx, b)
		if err == nil {
			return nil
		}
		if !errors.Is(err, model.ErrDuplicateReference) {
			return err
		}
		s.log.Warn("booking reference collision",
			zap.String("booking_reference", b.Reference),
			zap.Int("attempt", attempt))
	}
	return fmt.Errorf("%w: could not allocate a unique booking reference", model.ErrConflict)
}
