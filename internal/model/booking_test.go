package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to BookingStatus
		ok       bool
	}{
		{BookingConfirmed, BookingCancelled, true},
		{BookingConfirmed, BookingConfirmed, false},
		{BookingCancelled, BookingConfirmed, false},
		{BookingCancelled, BookingCancelled, false},
		{BookingStatus("PENDING"), BookingCancelled, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
			err := tt.from.Transition(tt.to)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidTransition))
			}
		})
	}
}

func TestParseBookingStatus(t *testing.T) {
	st, err := ParseBookingStatus(" cancelled ")
	require.NoError(t, err)
	assert.Equal(t, BookingCancelled, st)

	_, err = ParseBookingStatus("refunded")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestShowtimeFilterMatches(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s := Showtime{MovieID: 1, TheaterID: 2, StartsAt: now}

	assert.True(t, ShowtimeFilter{}.Matches(s))
	assert.True(t, ShowtimeFilter{MovieID: 1, TheaterID: 2}.Matches(s))
	assert.False(t, ShowtimeFilter{MovieID: 3}.Matches(s))
	assert.False(t, ShowtimeFilter{TheaterID: 3}.Matches(s))
	assert.True(t, ShowtimeFilter{StartsAfter: now.Add(-time.Minute)}.Matches(s))
	assert.False(t, ShowtimeFilter{StartsAfter: now}.Matches(s))
}
