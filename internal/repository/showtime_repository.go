package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/movietix/internal/model"
)

// ShowtimeRepo stores showtimes in the `showtimes` table.
type ShowtimeRepo struct{ DB *sql.DB }

// NewShowtimeRepo returns a ShowtimeRepo bound to db.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo { return &ShowtimeRepo{DB: db} }

const showtimeColumns = "id, movie_id, theater_id, starts_at, ticket_price_cents, total_seats, created_at, updated_at"

func scanShowtime(row interface{ Scan(...any) error }) (model.Showtime, error) {
	var s model.Showtime
	err := row.Scan(&s.ID, &s.MovieID, &s.TheaterID, &s.StartsAt, &s.TicketPriceCents, &s.TotalSeats, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// CreateShowtime inserts s while holding the theater row lock, so the seats
// cannot outgrow a concurrently shrinking theater.  A missing movie surfaces
// as model.ErrNotFound through the foreign key.
func (r *ShowtimeRepo) CreateShowtime(ctx context.Context, s *model.Showtime) error {
	var id int64
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkTheaterCapacity(ctx, tx, s); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO showtimes (movie_id, theater_id, starts_at, ticket_price_cents, total_seats) VALUES (?, ?, ?, ?, ?)",
			s.MovieID, s.TheaterID, s.StartsAt.UTC(), s.TicketPriceCents, s.TotalSeats)
		if err != nil {
			return translate(err, "showtime")
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return err
	}
	saved, err := r.GetShowtime(ctx, uint64(id))
	if err != nil {
		return err
	}
	*s = *saved
	return nil
}

// GetShowtime fetches a showtime by id.
func (r *ShowtimeRepo) GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error) {
	s, err := scanShowtime(r.DB.QueryRowContext(ctx, "SELECT "+showtimeColumns+" FROM showtimes WHERE id = ?", id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("showtime %d", id))
	}
	return &s, nil
}

// ListShowtimes returns matching showtimes ordered by start time.
func (r *ShowtimeRepo) ListShowtimes(ctx context.Context, f model.ShowtimeFilter) ([]model.Showtime, error) {
	where := []string{}
	args := []any{}
	if f.MovieID != 0 {
		where = append(where, "movie_id = ?")
		args = append(args, f.MovieID)
	}
	if f.TheaterID != 0 {
		where = append(where, "theater_id = ?")
		args = append(args, f.TheaterID)
	}
	if !f.StartsAfter.IsZero() {
		where = append(where, "starts_at > ?")
		args = append(args, f.StartsAfter.UTC())
	}

	q := "SELECT " + showtimeColumns + " FROM showtimes"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY starts_at, id"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Showtime, 0)
	for rows.Next() {
		s, err := scanShowtime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateShowtime locks the theater and showtime rows, checks the new
// capacity against the theater and the confirmed seats, and writes every
// column in one transaction.  Admission takes the same showtime row lock,
// so the two cannot interleave.
func (r *ShowtimeRepo) UpdateShowtime(ctx context.Context, s *model.Showtime) error {
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkTheaterCapacity(ctx, tx, s); err != nil {
			return err
		}
		var locked uint64
		if err := tx.QueryRowContext(ctx, "SELECT id FROM showtimes WHERE id = ? FOR UPDATE", s.ID).Scan(&locked); err != nil {
			return translate(err, fmt.Sprintf("showtime %d", s.ID))
		}
		booked, err := confirmedSeats(ctx, tx, s.ID)
		if err != nil {
			return err
		}
		if s.TotalSeats < booked {
			return fmt.Errorf("%w: showtime %d already has %d confirmed seats", model.ErrConflict, s.ID, booked)
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE showtimes SET movie_id = ?, theater_id = ?, starts_at = ?, ticket_price_cents = ?, total_seats = ? WHERE id = ?",
			s.MovieID, s.TheaterID, s.StartsAt.UTC(), s.TicketPriceCents, s.TotalSeats, s.ID)
		return translate(err, "showtime")
	})
	if err != nil {
		return err
	}
	saved, err := r.GetShowtime(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *saved
	return nil
}

// DeleteShowtime refuses while any booking references the showtime.
func (r *ShowtimeRepo) DeleteShowtime(ctx context.Context, id uint64) error {
	return deleteUnreferenced(ctx, r.DB, "showtimes", id,
		"SELECT COUNT(*) FROM bookings WHERE showtime_id = ?", "showtime has bookings")
}
