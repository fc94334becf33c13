package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/movietix/internal/model"
)

// MovieRepo stores movies in the `movies` table.
type MovieRepo struct{ DB *sql.DB }

// NewMovieRepo returns a MovieRepo bound to db.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{DB: db} }

const movieColumns = "id, title, genre, duration_minutes, release_date, description, created_at, updated_at"

func scanMovie(row interface{ Scan(...any) error }) (model.Movie, error) {
	var (
		m    model.Movie
		desc sql.NullString
	)
	err := row.Scan(&m.ID, &m.Title, &m.Genre, &m.DurationMinutes, &m.ReleaseDate, &desc, &m.CreatedAt, &m.UpdatedAt)
	m.Description = desc.String
	return m, err
}

// CreateMovie inserts m and reads back its ID and timestamps.
func (r *MovieRepo) CreateMovie(ctx context.Context, m *model.Movie) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO movies (title, genre, duration_minutes, release_date, description) VALUES (?, ?, ?, ?, ?)",
		m.Title, m.Genre, m.DurationMinutes, m.ReleaseDate.Format(model.DateLayout), nullString(m.Description))
	if err != nil {
		return translate(err, "movie")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	saved, err := r.GetMovie(ctx, uint64(id))
	if err != nil {
		return err
	}
	*m = *saved
	return nil
}

// GetMovie fetches a movie by id.
func (r *MovieRepo) GetMovie(ctx context.Context, id uint64) (*model.Movie, error) {
	m, err := scanMovie(r.DB.QueryRowContext(ctx, "SELECT "+movieColumns+" FROM movies WHERE id = ?", id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("movie %d", id))
	}
	return &m, nil
}

// ListMovies returns all movies ordered by title.
func (r *MovieRepo) ListMovies(ctx context.Context) ([]model.Movie, error) {
	return r.query(ctx, "SELECT "+movieColumns+" FROM movies ORDER BY title, id")
}

// SearchMoviesByTitle matches a case-insensitive substring of the title.
func (r *MovieRepo) SearchMoviesByTitle(ctx context.Context, fragment string) ([]model.Movie, error) {
	return r.query(ctx,
		"SELECT "+movieColumns+" FROM movies WHERE LOWER(title) LIKE ? ORDER BY title, id",
		likePattern(fragment))
}

func (r *MovieRepo) query(ctx context.Context, q string, args ...any) ([]model.Movie, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Movie, 0)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateMovie overwrites every writable column.
func (r *MovieRepo) UpdateMovie(ctx context.Context, m *model.Movie) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE movies SET title = ?, genre = ?, duration_minutes = ?, release_date = ?, description = ? WHERE id = ?",
		m.Title, m.Genre, m.DurationMinutes, m.ReleaseDate.Format(model.DateLayout), nullString(m.Description), m.ID)
	if err != nil {
		return translate(err, "movie")
	}
	if err := requireAffected(ctx, res, r.DB, "movies", m.ID); err != nil {
		return err
	}
	saved, err := r.GetMovie(ctx, m.ID)
	if err != nil {
		return err
	}
	*m = *saved
	return nil
}

// DeleteMovie refuses while showtimes reference the movie.
func (r *MovieRepo) DeleteMovie(ctx context.Context, id uint64) error {
	return deleteUnreferenced(ctx, r.DB, "movies", id,
		"SELECT COUNT(*) FROM showtimes WHERE movie_id = ?", "movie has scheduled showtimes")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// requireAffected distinguishes "no such row" from "row unchanged" after an
// UPDATE, since MySQL reports zero affected rows for both.
func requireAffected(ctx context.Context, res sql.Result, q queryer, table string, id uint64) error {
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	return translate(err, fmt.Sprintf("%s %d", table, id))
}

// deleteUnreferenced locks the row, counts dependents with countQuery and
// deletes only when there are none.  Table names are constants of this
// package, never user input.
func deleteUnreferenced(ctx context.Context, db *sql.DB, table string, id uint64, countQuery, conflictMsg string) error {
	return withTx(ctx, db, func(tx *sql.Tx) error {
		var one int
		if err := tx.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ? FOR UPDATE", id).Scan(&one); err != nil {
			return translate(err, fmt.Sprintf("%s %d", table, id))
		}
		var refs int
		if err := tx.QueryRowContext(ctx, countQuery, id).Scan(&refs); err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("%w: %s", model.ErrConflict, conflictMsg)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id); err != nil {
			return translate(err, table)
		}
		return nil
	})
}
