package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/movietix/internal/model"
)

// BookingRepo is the MySQL booking ledger.
type BookingRepo struct{ DB *sql.DB }

// NewBookingRepo returns a BookingRepo bound to db.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{DB: db} }

const bookingColumns = "id, user_id, showtime_id, seat_count, total_price_cents, status, booking_reference, created_at, updated_at"

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.UserID, &b.ShowtimeID, &b.SeatCount, &b.TotalPriceCents, &b.Status, &b.Reference, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// ConfirmedSeats sums the seats of CONFIRMED bookings of a showtime.  It is
// an unlocked read, fine for display.
func (r *BookingRepo) ConfirmedSeats(ctx context.Context, showtimeID uint64) (int, error) {
	return confirmedSeats(ctx, r.DB, showtimeID)
}

// InsertBooking admits b inside one transaction: the showtime row is locked
// with SELECT ... FOR UPDATE, the confirmed seats are re-summed under that
// lock and the insert only happens if the capacity still holds.  Concurrent
// inserts for the same showtime queue on the row lock, across processes.
func (r *BookingRepo) InsertBooking(ctx context.Context, b *model.Booking) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var capacity int
		err := tx.QueryRowContext(ctx,
			"SELECT total_seats FROM showtimes WHERE id = ? FOR UPDATE", b.ShowtimeID).Scan(&capacity)
		if err != nil {
			return translate(err, fmt.Sprintf("showtime %d", b.ShowtimeID))
		}

		if b.IsConfirmed() {
			booked, err := confirmedSeats(ctx, tx, b.ShowtimeID)
			if err != nil {
				return err
			}
			if booked+b.SeatCount > capacity {
				return fmt.Errorf("%w: requested %d seats, %d available",
					model.ErrCapacityExceeded, b.SeatCount, max(capacity-booked, 0))
			}
		}

		res, err := tx.ExecContext(ctx,
			"INSERT INTO bookings (user_id, showtime_id, seat_count, total_price_cents, status, booking_reference) VALUES (?, ?, ?, ?, ?, ?)",
			b.UserID, b.ShowtimeID, b.SeatCount, b.TotalPriceCents, b.Status, b.Reference)
		if err != nil {
			if isDuplicateKey(err) {
				return model.ErrDuplicateReference
			}
			return translate(err, "booking")
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}

		saved, err := scanBooking(tx.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id))
		if err != nil {
			return err
		}
		*b = saved
		return nil
	})
}

// GetBooking fetches a booking by id.
func (r *BookingRepo) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBooking(r.DB.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("booking %d", id))
	}
	return &b, nil
}

// ListBookings returns every booking, newest first.
func (r *BookingRepo) ListBookings(ctx context.Context) ([]model.Booking, error) {
	return r.query(ctx, "SELECT "+bookingColumns+" FROM bookings ORDER BY id DESC")
}

// ListBookingsByUser returns a user's bookings, newest first.
func (r *BookingRepo) ListBookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return r.query(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE user_id = ? ORDER BY id DESC", userID)
}

func (r *BookingRepo) query(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateBookingStatus is a compare-and-set on the status column.
func (r *BookingRepo) UpdateBookingStatus(ctx context.Context, id uint64, from, to model.BookingStatus) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE bookings SET status = ? WHERE id = ? AND status = ?", to, id, from)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return nil
	}
	cur, err := r.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: booking %d is %s, not %s", model.ErrInvalidTransition, id, cur.Status, from)
}

// DeleteBooking removes a booking row.
func (r *BookingRepo) DeleteBooking(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("booking %d: %w", id, model.ErrNotFound)
	}
	return nil
}
