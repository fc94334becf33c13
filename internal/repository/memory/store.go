// Package memory implements every storage interface of the service layer in
// process memory.  It backs STORAGE=memory and the service and handler
// tests.  A single RWMutex guards all maps, which keeps cross-entity checks
// (dependents on delete, capacity on insert) atomic.
package memory

import (
	"sync"
	"time"

	"github.com/iliyamo/movietix/internal/model"
)

// Store is an in-memory implementation of the movie, theater, showtime,
// booking, user and token stores.
type Store struct {
	mu sync.RWMutex

	movies    map[uint64]model.Movie
	theaters  map[uint64]model.Theater
	showtimes map[uint64]model.Showtime
	bookings  map[uint64]model.Booking
	refs      map[string]uint64 // booking reference -> booking id
	users     map[uint64]model.User
	emails    map[string]uint64 // email -> user id
	tokens    map[string]model.RefreshToken

	lastID uint64
	now    func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		movies:    make(map[uint64]model.Movie),
		theaters:  make(map[uint64]model.Theater),
		showtimes: make(map[uint64]model.Showtime),
		bookings:  make(map[uint64]model.Booking),
		refs:      make(map[string]uint64),
		users:     make(map[uint64]model.User),
		emails:    make(map[string]uint64),
		tokens:    make(map[string]model.RefreshToken),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// nextID must be called with mu held for writing.  IDs are unique across
// all entity kinds, which is harmless and keeps the counter single.
func (s *Store) nextID() uint64 {
	s.lastID++
	return s.lastID
}
