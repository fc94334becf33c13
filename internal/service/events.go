package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/movietix/internal/model"
	"github.com/iliyamo/movietix/internal/queue"
)

// eventTimeout bounds a single publish attempt.
const eventTimeout = 5 * time.Second

// EventEmitter publishes booking events in the background.  A failed publish
// is logged and never fails the booking that produced it.
type EventEmitter struct {
	pub EventPublisher
	log *zap.Logger
	wg  sync.WaitGroup
}

// NewEventEmitter wraps pub.  A nil pub drops every event.
func NewEventEmitter(pub EventPublisher, log *zap.Logger) *EventEmitter {
	if pub == nil {
		pub = queue.NopPublisher{}
	}
	return &EventEmitter{pub: pub, log: log}
}

// Emit publishes an event describing b under routing key kind.
func (e *EventEmitter) Emit(kind string, b *model.Booking) {
	ev := queue.BookingEvent{
		Type:            kind,
		BookingID:       b.ID,
		Reference:       b.Reference,
		UserID:          b.UserID,
		ShowtimeID:      b.ShowtimeID,
		SeatCount:       b.SeatCount,
		TotalPriceCents: b.TotalPriceCents,
		Status:          string(b.Status),
		OccurredAt:      time.Now().UTC(),
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()
		if err := e.pub.Publish(ctx, ev); err != nil {
			e.log.Warn("publish booking event failed",
				zap.String("routing_key", kind),
				zap.String("booking_reference", ev.Reference),
				zap.Error(err))
		}
	}()
}

// Wait blocks until every in-flight publish has finished.
func (e *EventEmitter) Wait() {
	e.wg.Wait()
}
