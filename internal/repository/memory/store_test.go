package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movietix/internal/model"
	"github.com/iliyamo/movietix/internal/service"
)

var (
	_ service.MovieStore    = (*Store)(nil)
	_ service.TheaterStore  = (*Store)(nil)
	_ service.ShowtimeStore = (*Store)(nil)
	_ service.BookingLedger = (*Store)(nil)
	_ service.UserStore     = (*Store)(nil)
	_ service.TokenStore    = (*Store)(nil)
)

func seedShowtime(t *testing.T, s *Store, seats int) *model.Showtime {
	t.Helper()
	ctx := context.Background()
	m := &model.Movie{Title: "Heat", Genre: "Crime", DurationMinutes: 170}
	require.NoError(t, s.CreateMovie(ctx, m))
	th := &model.Theater{Name: "Rex", Location: "Downtown", SeatingCapacity: 100}
	require.NoError(t, s.CreateTheater(ctx, th))
	st := &model.Showtime{MovieID: m.ID, TheaterID: th.ID, StartsAt: time.Now().Add(time.Hour), TicketPriceCents: 1200, TotalSeats: seats}
	require.NoError(t, s.CreateShowtime(ctx, st))
	return st
}

func confirmed(showtimeID uint64, seats int, ref string) *model.Booking {
	return &model.Booking{UserID: 1, ShowtimeID: showtimeID, SeatCount: seats, Status: model.BookingConfirmed, Reference: ref}
}

func TestInsertBooking_EnforcesCapacity(t *testing.T) {
	s := New()
	ctx := context.Background()
	st := seedShowtime(t, s, 5)

	require.NoError(t, s.InsertBooking(ctx, confirmed(st.ID, 3, "BK-00000001")))
	err := s.InsertBooking(ctx, confirmed(st.ID, 3, "BK-00000002"))
	assert.ErrorIs(t, err, model.ErrCapacityExceeded)

	seats, err := s.ConfirmedSeats(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, seats)
}

func TestInsertBooking_DuplicateReference(t *testing.T) {
	s := New()
	ctx := context.Background()
	st := seedShowtime(t, s, 5)

	require.NoError(t, s.InsertBooking(ctx, confirmed(st.ID, 1, "BK-AAAAAAAA")))
	err := s.InsertBooking(ctx, confirmed(st.ID, 1, "BK-AAAAAAAA"))
	assert.ErrorIs(t, err, model.ErrDuplicateReference)
}

func TestInsertBooking_ConcurrentNeverOversells(t *testing.T) {
	s := New()
	ctx := context.Background()
	st := seedShowtime(t, s, 10)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.InsertBooking(ctx, confirmed(st.ID, 1, fmt.Sprintf("BK-%08X", i)))
		}(i)
	}
	wg.Wait()

	seats, err := s.ConfirmedSeats(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, seats)
}

func TestUpdateBookingStatus_CompareAndSet(t *testing.T) {
	s := New()
	ctx := context.Background()
	st := seedShowtime(t, s, 5)
	b := confirmed(st.ID, 2, "BK-00000003")
	require.NoError(t, s.InsertBooking(ctx, b))

	require.NoError(t, s.UpdateBookingStatus(ctx, b.ID, model.BookingConfirmed, model.BookingCancelled))
	err := s.UpdateBookingStatus(ctx, b.ID, model.BookingConfirmed, model.BookingCancelled)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	seats, _ := s.ConfirmedSeats(ctx, st.ID)
	assert.Zero(t, seats)
}

func TestDeletesBlockedByDependents(t *testing.T) {
	s := New()
	ctx := context.Background()
	st := seedShowtime(t, s, 5)
	require.NoError(t, s.InsertBooking(ctx, confirmed(st.ID, 1, "BK-00000004")))

	assert.ErrorIs(t, s.DeleteMovie(ctx, st.MovieID), model.ErrConflict)
	assert.ErrorIs(t, s.DeleteTheater(ctx, st.TheaterID), model.ErrConflict)
	assert.ErrorIs(t, s.DeleteShowtime(ctx, st.ID), model.ErrConflict)
	assert.ErrorIs(t, s.DeleteShowtime(ctx, 9999), model.ErrNotFound)
}

func TestUpdateShowtime_CapacityBelowConfirmed(t *testing.T) {
	s := New()
	ctx := context.Background()
	st := seedShowtime(t, s, 5)
	require.NoError(t, s.InsertBooking(ctx, confirmed(st.ID, 4, "BK-00000005")))

	st.TotalSeats = 3
	assert.ErrorIs(t, s.UpdateShowtime(ctx, st), model.ErrConflict)
	st.TotalSeats = 4
	assert.NoError(t, s.UpdateShowtime(ctx, st))
}

func TestInsertBooking_AvailableNeverNegative(t *testing.T) {
	s := New()
	ctx := context.Background()
	st := seedShowtime(t, s, 5)
	require.NoError(t, s.InsertBooking(ctx, confirmed(st.ID, 5, "BK-00000006")))

	// Leave the showtime oversold, as a legacy row could be.
	s.mu.Lock()
	shrunk := s.showtimes[st.ID]
	shrunk.TotalSeats = 3
	s.showtimes[st.ID] = shrunk
	s.mu.Unlock()

	err := s.InsertBooking(ctx, confirmed(st.ID, 1, "BK-00000007"))
	require.ErrorIs(t, err, model.ErrCapacityExceeded)
	assert.Contains(t, err.Error(), "0 available")
	assert.NotContains(t, err.Error(), "-2")
}

func TestTheaterCapacity_BoundsShowtimes(t *testing.T) {
	s := New()
	ctx := context.Background()
	st := seedShowtime(t, s, 80)
	th, err := s.GetTheater(ctx, st.TheaterID)
	require.NoError(t, err)

	th.SeatingCapacity = 50
	assert.ErrorIs(t, s.UpdateTheater(ctx, th), model.ErrConflict)

	over := &model.Showtime{MovieID: st.MovieID, TheaterID: st.TheaterID, StartsAt: st.StartsAt, TicketPriceCents: 900, TotalSeats: 101}
	assert.ErrorIs(t, s.CreateShowtime(ctx, over), model.ErrConflict)
	st.TotalSeats = 101
	assert.ErrorIs(t, s.UpdateShowtime(ctx, st), model.ErrConflict)

	th.SeatingCapacity = 80
	assert.NoError(t, s.UpdateTheater(ctx, th))
}

func TestTheaterCapacity_ConcurrentShrinkAndSchedule(t *testing.T) {
	s := New()
	ctx := context.Background()
	st := seedShowtime(t, s, 10)
	th, err := s.GetTheater(ctx, st.TheaterID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.CreateShowtime(ctx, &model.Showtime{MovieID: st.MovieID, TheaterID: th.ID, StartsAt: st.StartsAt, TicketPriceCents: 900, TotalSeats: 90})
		}()
		go func() {
			defer wg.Done()
			shrink := *th
			shrink.SeatingCapacity = 20
			_ = s.UpdateTheater(ctx, &shrink)
		}()
	}
	wg.Wait()

	got, err := s.GetTheater(ctx, th.ID)
	require.NoError(t, err)
	sts, err := s.ListShowtimes(ctx, model.ShowtimeFilter{TheaterID: th.ID})
	require.NoError(t, err)
	for _, x := range sts {
		assert.LessOrEqual(t, x.TotalSeats, got.SeatingCapacity, "showtime %d", x.ID)
	}
}

func TestSearchMoviesByTitle_CaseInsensitive(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, title := range []string{"The Matrix", "Matrix Reloaded", "Amélie"} {
		require.NoError(t, s.CreateMovie(ctx, &model.Movie{Title: title, Genre: "x", DurationMinutes: 1}))
	}

	got, err := s.SearchMoviesByTitle(ctx, "MATRIX")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Matrix Reloaded", got[0].Title)
}

func TestRefreshTokens(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := &model.User{Name: "A", Email: "a@x.io", Role: model.RoleCustomer}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.ErrorIs(t, s.CreateUser(ctx, &model.User{Email: "a@x.io"}), model.ErrConflict)

	require.NoError(t, s.StoreRefresh(ctx, u.ID, "h1", time.Now().Add(time.Hour)))
	require.NoError(t, s.StoreRefresh(ctx, u.ID, "h2", time.Now().Add(-time.Hour)))

	id, err := s.ValidateRefresh(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	_, err = s.ValidateRefresh(ctx, "h2")
	assert.ErrorIs(t, err, model.ErrNotFound, "expired")

	require.NoError(t, s.RevokeRefresh(ctx, "h1"))
	assert.ErrorIs(t, s.RevokeRefresh(ctx, "h1"), model.ErrNotFound, "second revoke loses")
	assert.ErrorIs(t, s.RevokeRefresh(ctx, "missing"), model.ErrNotFound)

	require.NoError(t, s.StoreRefresh(ctx, u.ID, "h3", time.Now().Add(time.Hour)))
	require.NoError(t, s.RevokeAllRefresh(ctx, u.ID))
	_, err = s.ValidateRefresh(ctx, "h3")
	assert.ErrorIs(t, err, model.ErrNotFound, "revoked")
}
