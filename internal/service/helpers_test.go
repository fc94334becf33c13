package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/movietix/internal/authctx"
	"github.com/iliyamo/movietix/internal/model"
	"github.com/iliyamo/movietix/internal/queue"
	"github.com/iliyamo/movietix/internal/repository/memory"
)

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// mockPublisher is a testify mock of EventPublisher.
type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, ev queue.BookingEvent) error {
	return m.Called(ctx, ev).Error(0)
}

// fixture is a fully wired service layer over the in-memory store.
type fixture struct {
	store     *memory.Store
	pub       *recordingPublisher
	events    *EventEmitter
	locks     *KeyedMutex
	admission *AdmissionService
	bookings  *BookingService
	showtimes *ShowtimeService
	movies    *MovieService
	theaters  *TheaterService
}

func newFixture(t *testing.T, opts ...AdmissionOption) *fixture {
	t.Helper()
	log := zap.NewNop()
	store := memory.New()
	pub := &recordingPublisher{}
	events := NewEventEmitter(pub, log)
	locks := NewKeyedMutex()
	return &fixture{
		store:     store,
		pub:       pub,
		events:    events,
		locks:     locks,
		admission: NewAdmissionService(store, store, locks, events, log, opts...),
		bookings:  NewBookingService(store, store, store, store, events, log),
		showtimes: NewShowtimeService(store, store, store, store, locks, log),
		movies:    NewMovieService(store),
		theaters:  NewTheaterService(store),
	}
}

// seedShowtime creates a movie, a 100-seat theater and a showtime with the
// given capacity and ticket price.
func (f *fixture) seedShowtime(t *testing.T, seats int, priceCents int64) *ShowtimeView {
	t.Helper()
	ctx := context.Background()
	m, err := f.movies.Create(ctx, MovieInput{Title: "Arrival", Genre: "Sci-Fi", DurationMinutes: 116, ReleaseDate: "2016-11-11"})
	require.NoError(t, err)
	th, err := f.theaters.Create(ctx, TheaterInput{Name: "Grand", Location: "Main St", SeatingCapacity: 100})
	require.NoError(t, err)
	st, err := f.showtimes.Create(ctx, ShowtimeInput{
		MovieID:          m.ID,
		TheaterID:        th.ID,
		StartsAt:         time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
		TicketPriceCents: priceCents,
		TotalSeats:       &seats,
	})
	require.NoError(t, err)
	return st
}

func customer(id uint64) authctx.Principal {
	return authctx.Principal{UserID: id, Role: model.RoleCustomer}
}

func admin() authctx.Principal {
	return authctx.Principal{UserID: 999, Role: model.RoleAdmin}
}
