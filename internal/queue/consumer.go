package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AuditQueueName is the durable queue bound to every booking.* event.
const AuditQueueName = "movietix.booking-audit"

// ErrMalformedEvent marks a delivery that can never be handled, so it is
// dropped instead of requeued.
var ErrMalformedEvent = errors.New("malformed booking event")

// AuditConsumer appends one JSON line per booking event to an audit sink.
type AuditConsumer struct {
	url   string
	log   *zap.Logger
	audit zapcore.Core
}

// NewAuditConsumer returns a consumer that writes to sink.
func NewAuditConsumer(url string, sink io.Writer, log *zap.Logger) *AuditConsumer {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "occurred_at"
	enc.MessageKey = "event"
	enc.EncodeTime = zapcore.RFC3339TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.Lock(zapcore.AddSync(sink)), zapcore.InfoLevel)
	return &AuditConsumer{url: url, log: log, audit: core}
}

// Run consumes until ctx is cancelled, reconnecting with exponential backoff
// (capped at 30s) whenever the broker connection drops.
func (c *AuditConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("audit consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("audit consumer: loop ended, reconnecting", zap.Error(err))
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("audit consumer: set QoS failed", zap.Error(err))
	}
	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	q, err := ch.QueueDeclare(AuditQueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, "booking.*", ExchangeName, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}

	msgs, err := ch.ConsumeWithContext(ctx, q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		c.settle(d)
	}
	return errors.New("deliveries channel closed")
}

// settle handles one delivery and acks it.  A malformed body is dropped; any
// other failure is requeued so the event is not lost.
func (c *AuditConsumer) settle(d amqp.Delivery) {
	if err := c.Handle(d.Body); err != nil {
		malformed := errors.Is(err, ErrMalformedEvent)
		c.log.Error("audit consumer: handle message failed", zap.Error(err), zap.Bool("requeue", !malformed))
		_ = d.Nack(false, !malformed)
		return
	}
	_ = d.Ack(false)
}

// Handle decodes one message body and appends its audit line.  Undecodable
// bodies yield ErrMalformedEvent; sink failures are returned as is.
func (c *AuditConsumer) Handle(body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.Type == "" || ev.Reference == "" {
		return fmt.Errorf("%w: event without type or reference", ErrMalformedEvent)
	}

	entry := zapcore.Entry{Level: zapcore.InfoLevel, Time: ev.OccurredAt.UTC(), Message: ev.Type}
	fields := []zapcore.Field{
		zap.Uint64("booking_id", ev.BookingID),
		zap.String("reference", ev.Reference),
		zap.Uint64("user_id", ev.UserID),
		zap.Uint64("showtime_id", ev.ShowtimeID),
		zap.Int("seat_count", ev.SeatCount),
		zap.Int64("total_price_cents", ev.TotalPriceCents),
		zap.String("status", ev.Status),
	}
	if err := c.audit.Write(entry, fields); err != nil {
		return fmt.Errorf("write audit line: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
