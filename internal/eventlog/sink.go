package eventlog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/ecomcore/orderflow/internal/bus"
)

// Sink is the push-direct subscriber that turns each delivered order
// envelope into one audit record. Returning an error on store failure lets
// the router log it without blocking the other subscribers.
type Sink struct {
	store     Store
	retention time.Duration
	lg        *zap.Logger

	now func() time.Time
}

// NewSink creates a sink writing records that expire after retention.
func NewSink(store Store, retention time.Duration, lg *zap.Logger) *Sink {
	return &Sink{store: store, retention: retention, lg: lg, now: time.Now}
}

// Handle appends one record for the delivery. The record's sort key embeds
// the current timestamp, so distinct occurrences never collide while a
// redelivered message overwrites its own earlier record.
func (s *Sink) Handle(ctx context.Context, d bus.Delivery) error {
	ev, err := d.Envelope.OrderEvent()
	if err != nil {
		return errors.Wrap(err, "unwrap envelope")
	}

	now := s.now()
	millis := now.UnixMilli()

	rec := Record{
		PK:        OrderPK(ev.OrderID),
		SK:        SortKey(string(d.Envelope.EventType), millis),
		TTL:       now.Add(s.retention).Unix(),
		Email:     ev.Email,
		CreatedAt: millis,
		RequestID: ev.RequestID,
		EventType: string(d.Envelope.EventType),
		Info: Info{
			OrderID:      ev.OrderID,
			ProductCodes: ev.ProductCodes,
			MessageID:    d.MessageID,
		},
	}

	if err := s.store.Append(ctx, rec); err != nil {
		return errors.Wrap(err, "append record")
	}

	s.lg.Debug("Event recorded",
		zap.String("order_id", ev.OrderID),
		zap.String("event_type", rec.EventType),
		zap.String("message_id", d.MessageID))
	return nil
}
