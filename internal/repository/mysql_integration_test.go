package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movietix/internal/database"
	"github.com/iliyamo/movietix/internal/model"
)

// openTestDB connects to the MySQL named by MOVIETIX_TEST_MYSQL_DSN and
// applies the migrations.  The test is skipped when the variable is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("MOVIETIX_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("MOVIETIX_TEST_MYSQL_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, database.Migrate(ctx, db))
	return db
}

func TestMySQLLedger_ConcurrentAdmissionNeverOversells(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	movies, theaters, showtimes, bookings, users :=
		NewMovieRepo(db), NewTheaterRepo(db), NewShowtimeRepo(db), NewBookingRepo(db), NewUserRepo(db)

	suffix := time.Now().UnixNano()
	u := &model.User{Name: "it", Email: fmt.Sprintf("it-%d@example.com", suffix), PasswordHash: "x", Role: model.RoleCustomer}
	require.NoError(t, users.CreateUser(ctx, u))
	m := &model.Movie{Title: "Integration", Genre: "Test", DurationMinutes: 90, ReleaseDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, movies.CreateMovie(ctx, m))
	th := &model.Theater{Name: "IT Hall", Location: "Lab", SeatingCapacity: 5}
	require.NoError(t, theaters.CreateTheater(ctx, th))
	st := &model.Showtime{MovieID: m.ID, TheaterID: th.ID, StartsAt: time.Now().Add(time.Hour), TicketPriceCents: 900, TotalSeats: 5}
	require.NoError(t, showtimes.CreateShowtime(ctx, st))

	shrunk := *th
	shrunk.SeatingCapacity = 4
	assert.ErrorIs(t, theaters.UpdateTheater(ctx, &shrunk), model.ErrConflict)
	wide := &model.Showtime{MovieID: m.ID, TheaterID: th.ID, StartsAt: st.StartsAt, TicketPriceCents: 900, TotalSeats: 6}
	assert.ErrorIs(t, showtimes.CreateShowtime(ctx, wide), model.ErrConflict)

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := &model.Booking{
				UserID: u.ID, ShowtimeID: st.ID, SeatCount: 3, TotalPriceCents: 2700,
				Status: model.BookingConfirmed, Reference: fmt.Sprintf("BK-%08X", uint32(suffix)+uint32(i)),
			}
			if err := bookings.InsertBooking(ctx, b); err == nil {
				accepted.Add(1)
			} else {
				assert.ErrorIs(t, err, model.ErrCapacityExceeded)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
	seats, err := bookings.ConfirmedSeats(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, seats)

	assert.ErrorIs(t, showtimes.DeleteShowtime(ctx, st.ID), model.ErrConflict)
	assert.ErrorIs(t, movies.DeleteMovie(ctx, m.ID), model.ErrConflict)
}
