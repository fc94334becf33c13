package model

import "time"

// Movie is a catalog entry.  Showtimes reference it by ID; a movie with
// scheduled showtimes cannot be deleted.
//
// Fields:
//
//	ID              – primary key identifier.
//	Title           – display title, searched case-insensitively.
//	Genre           – free-form genre label.
//	DurationMinutes – running time, always positive.
//	ReleaseDate     – calendar date of release (time part is zero, UTC).
//	Description     – optional synopsis.
type Movie struct {
	ID              uint64    // movies.id
	Title           string    // movies.title
	Genre           string    // movies.genre
	DurationMinutes int       // movies.duration_minutes
	ReleaseDate     time.Time // movies.release_date
	Description     string    // movies.description
	CreatedAt       time.Time // movies.created_at
	UpdatedAt       time.Time // movies.updated_at
}

// DateLayout is the wire and storage format of Movie.ReleaseDate.
const DateLayout = "2006-01-02"
