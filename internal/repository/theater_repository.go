package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/movietix/internal/model"
)

// TheaterRepo stores theaters in the `theaters` table.
type TheaterRepo struct{ DB *sql.DB }

// NewTheaterRepo returns a TheaterRepo bound to db.
func NewTheaterRepo(db *sql.DB) *TheaterRepo { return &TheaterRepo{DB: db} }

const theaterColumns = "id, name, location, seating_capacity, created_at, updated_at"

func scanTheater(row interface{ Scan(...any) error }) (model.Theater, error) {
	var t model.Theater
	err := row.Scan(&t.ID, &t.Name, &t.Location, &t.SeatingCapacity, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// CreateTheater inserts t and reads back its ID and timestamps.
func (r *TheaterRepo) CreateTheater(ctx context.Context, t *model.Theater) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO theaters (name, location, seating_capacity) VALUES (?, ?, ?)",
		t.Name, t.Location, t.SeatingCapacity)
	if err != nil {
		return translate(err, "theater")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	saved, err := r.GetTheater(ctx, uint64(id))
	if err != nil {
		return err
	}
	*t = *saved
	return nil
}

// GetTheater fetches a theater by id.
func (r *TheaterRepo) GetTheater(ctx context.Context, id uint64) (*model.Theater, error) {
	t, err := scanTheater(r.DB.QueryRowContext(ctx, "SELECT "+theaterColumns+" FROM theaters WHERE id = ?", id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("theater %d", id))
	}
	return &t, nil
}

// ListTheaters returns all theaters ordered by name.
func (r *TheaterRepo) ListTheaters(ctx context.Context) ([]model.Theater, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+theaterColumns+" FROM theaters ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Theater, 0)
	for rows.Next() {
		t, err := scanTheater(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTheater overwrites every writable column.  Under the theater row
// lock it refuses a capacity below the seats of any showtime scheduled there.
func (r *TheaterRepo) UpdateTheater(ctx context.Context, t *model.Theater) error {
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := lockTheaterCapacity(ctx, tx, t.ID); err != nil {
			return err
		}
		var widest int
		if err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(total_seats), 0) FROM showtimes WHERE theater_id = ?", t.ID).Scan(&widest); err != nil {
			return err
		}
		if widest > t.SeatingCapacity {
			return fmt.Errorf("%w: a showtime has %d seats, above the new capacity %d",
				model.ErrConflict, widest, t.SeatingCapacity)
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE theaters SET name = ?, location = ?, seating_capacity = ? WHERE id = ?",
			t.Name, t.Location, t.SeatingCapacity, t.ID)
		return translate(err, "theater")
	})
	if err != nil {
		return err
	}
	saved, err := r.GetTheater(ctx, t.ID)
	if err != nil {
		return err
	}
	*t = *saved
	return nil
}

// DeleteTheater refuses while showtimes reference the theater.
func (r *TheaterRepo) DeleteTheater(ctx context.Context, id uint64) error {
	return deleteUnreferenced(ctx, r.DB, "theaters", id,
		"SELECT COUNT(*) FROM showtimes WHERE theater_id = ?", "theater has scheduled showtimes")
}
