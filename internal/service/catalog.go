package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/movietix/internal/model"
)

// MovieInput is the writable part of a movie.  ReleaseDate uses
// model.DateLayout.
type MovieInput struct {
	Title           string
	Genre           string
	DurationMinutes int
	ReleaseDate     string
	Description     string
}

func (in MovieInput) toMovie() (*model.Movie, error) {
	title := strings.TrimSpace(in.Title)
	genre := strings.TrimSpace(in.Genre)
	switch {
	case title == "":
		return nil, fmt.Errorf("%w: title is required", model.ErrValidation)
	case genre == "":
		return nil, fmt.Errorf("%w: genre is required", model.ErrValidation)
	case in.DurationMinutes <= 0:
		return nil, fmt.Errorf("%w: duration_minutes must be positive", model.ErrValidation)
	}
	released, err := time.ParseInLocation(model.DateLayout, strings.TrimSpace(in.ReleaseDate), time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: release_date must be YYYY-MM-DD", model.ErrValidation)
	}
	return &model.Movie{
		Title:           title,
		Genre:           genre,
		DurationMinutes: in.DurationMinutes,
		ReleaseDate:     released,
		Description:     strings.TrimSpace(in.Description),
	}, nil
}

// MovieService manages the movie catalog.
type MovieService struct {
	movies MovieStore
}

// NewMovieService wires the movie catalog.
func NewMovieService(movies MovieStore) *MovieService {
	return &MovieService{movies: movies}
}

// Create validates and stores a new movie.
func (s *MovieService) Create(ctx context.Context, in MovieInput) (*model.Movie, error) {
	m, err := in.toMovie()
	if err != nil {
		return nil, err
	}
	if err := s.movies.CreateMovie(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Get returns one movie.
func (s *MovieService) Get(ctx context.Context, id uint64) (*model.Movie, error) {
	return s.movies.GetMovie(ctx, id)
}

// List returns every movie ordered by title.
func (s *MovieService) List(ctx context.Context) ([]model.Movie, error) {
	return s.movies.ListMovies(ctx)
}

// Search returns movies whose title contains q, ignoring case.
func (s *MovieService) Search(ctx context.Context, q string) ([]model.Movie, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("%w: title query is required", model.ErrValidation)
	}
	return s.movies.SearchMoviesByTitle(ctx, q)
}

// Update replaces every writable field of movie id.
func (s *MovieService) Update(ctx context.Context, id uint64, in MovieInput) (*model.Movie, error) {
	m, err := in.toMovie()
	if err != nil {
		return nil, err
	}
	cur, err := s.movies.GetMovie(ctx, id)
	if err != nil {
		return nil, err
	}
	m.ID = id
	m.CreatedAt = cur.CreatedAt
	if err := s.movies.UpdateMovie(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes a movie that no showtime references.
func (s *MovieService) Delete(ctx context.Context, id uint64) error {
	return s.movies.DeleteMovie(ctx, id)
}

// TheaterInput is the writable part of a theater.
type TheaterInput struct {
	Name            string
	Location        string
	SeatingCapacity int
}

func (in TheaterInput) toTheater() (*model.Theater, error) {
	name := strings.TrimSpace(in.Name)
	loc := strings.TrimSpace(in.Location)
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", model.ErrValidation)
	case loc == "":
		return nil, fmt.Errorf("%w: location is required", model.ErrValidation)
	case in.SeatingCapacity <= 0:
		return nil, fmt.Errorf("%w: seating_capacity must be positive", model.ErrValidation)
	}
	return &model.Theater{Name: name, Location: loc, SeatingCapacity: in.SeatingCapacity}, nil
}

// TheaterService manages theaters.
type TheaterService struct {
	theaters TheaterStore
}

// NewTheaterService wires theater administration.
func NewTheaterService(theaters TheaterStore) *TheaterService {
	return &TheaterService{theaters: theaters}
}

// Create validates and stores a new theater.
func (s *TheaterService) Create(ctx context.Context, in TheaterInput) (*model.Theater, error) {
	t, err := in.toTheater()
	if err != nil {
		return nil, err
	}
	if err := s.theaters.CreateTheater(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Get returns one theater.
func (s *TheaterService) Get(ctx context.Context, id uint64) (*model.Theater, error) {
	return s.theaters.GetTheater(ctx, id)
}

// List returns every theater ordered by name.
func (s *TheaterService) List(ctx context.Context) ([]model.Theater, error) {
	return s.theaters.ListTheaters(ctx)
}

// Update replaces every writable field of theater id.  The store refuses a
// capacity below the seats of a showtime already scheduled there, atomically
// with showtime writes.
func (s *TheaterService) Update(ctx context.Context, id uint64, in TheaterInput) (*model.Theater, error) {
	t, err := in.toTheater()
	if err != nil {
		return nil, err
	}
	cur, err := s.theaters.GetTheater(ctx, id)
	if err != nil {
		return nil, err
	}
	t.ID = id
	t.CreatedAt = cur.CreatedAt
	if err := s.theaters.UpdateTheater(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a theater that no showtime references.
func (s *TheaterService) Delete(ctx context.Context, id uint64) error {
	return s.theaters.DeleteTheater(ctx, id)
}
