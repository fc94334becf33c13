package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/movietix/internal/model"
)

// CreateMovie assigns an ID and timestamps.
func (s *Store) CreateMovie(_ context.Context, m *model.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.nextID()
	m.CreatedAt = s.now()
	m.UpdatedAt = m.CreatedAt
	s.movies[m.ID] = *m
	return nil
}

// GetMovie returns a copy of the stored movie.
func (s *Store) GetMovie(_ context.Context, id uint64) (*model.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.movies[id]
	if !ok {
		return nil, fmt.Errorf("movie %d: %w", id, model.ErrNotFound)
	}
	return &m, nil
}

// ListMovies returns all movies ordered by title.
func (s *Store) ListMovies(ctx context.Context) ([]model.Movie, error) {
	return s.filterMovies(func(model.Movie) bool { return true }), nil
}

// SearchMoviesByTitle matches a case-insensitive substring of the title.
func (s *Store) SearchMoviesByTitle(_ context.Context, fragment string) ([]model.Movie, error) {
	needle := strings.ToLower(fragment)
	return s.filterMovies(func(m model.Movie) bool {
		return strings.Contains(strings.ToLower(m.Title), needle)
	}), nil
}

func (s *Store) filterMovies(keep func(model.Movie) bool) []model.Movie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Movie, 0, len(s.movies))
	for _, m := range s.movies {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// UpdateMovie replaces the stored movie.
func (s *Store) UpdateMovie(_ context.Context, m *model.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.movies[m.ID]
	if !ok {
		return fmt.Errorf("movie %d: %w", m.ID, model.ErrNotFound)
	}
	m.CreatedAt = cur.CreatedAt
	m.UpdatedAt = s.now()
	s.movies[m.ID] = *m
	return nil
}

// DeleteMovie refuses while a showtime references the movie.
func (s *Store) DeleteMovie(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[id]; !ok {
		return fmt.Errorf("movie %d: %w", id, model.ErrNotFound)
	}
	for _, st := range s.showtimes {
		if st.MovieID == id {
			return fmt.Errorf("%w: movie %d has scheduled showtimes", model.ErrConflict, id)
		}
	}
	delete(s.movies, id)
	return nil
}

// CreateTheater assigns an ID and timestamps.
func (s *Store) CreateTheater(_ context.Context, t *model.Theater) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.nextID()
	t.CreatedAt = s.now()
	t.UpdatedAt = t.CreatedAt
	s.theaters[t.ID] = *t
	return nil
}

// GetTheater returns a copy of the stored theater.
func (s *Store) GetTheater(_ context.Context, id uint64) (*model.Theater, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.theaters[id]
	if !ok {
		return nil, fmt.Errorf("theater %d: %w", id, model.ErrNotFound)
	}
	return &t, nil
}

// ListTheaters returns all theaters ordered by name.
func (s *Store) ListTheaters(_ context.Context) ([]model.Theater, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Theater, 0, len(s.theaters))
	for _, t := range s.theaters {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateTheater replaces the stored theater unless a showtime scheduled
// there has more seats than the new capacity.
func (s *Store) UpdateTheater(_ context.Context, t *model.Theater) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.theaters[t.ID]
	if !ok {
		return fmt.Errorf("theater %d: %w", t.ID, model.ErrNotFound)
	}
	for _, st := range s.showtimes {
		if st.TheaterID == t.ID && st.TotalSeats > t.SeatingCapacity {
			return fmt.Errorf("%w: showtime %d has %d seats, above the new capacity %d",
				model.ErrConflict, st.ID, st.TotalSeats, t.SeatingCapacity)
		}
	}
	t.CreatedAt = cur.CreatedAt
	t.UpdatedAt = s.now()
	s.theaters[t.ID] = *t
	return nil
}

// DeleteTheater refuses while a showtime references the theater.
func (s *Store) DeleteTheater(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.theaters[id]; !ok {
		return fmt.Errorf("theater %d: %w", id, model.ErrNotFound)
	}
	for _, st := range s.showtimes {
		if st.TheaterID == id {
			return fmt.Errorf("%w: theater %d has scheduled showtimes", model.ErrConflict, id)
		}
	}
	delete(s.theaters, id)
	return nil
}
