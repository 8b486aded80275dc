// Package bus implements the in-process message bus for lifecycle events:
// attribute-filtered fan-out to push-direct subscribers and durable work
// queues, plus the batch consumer that drains a queue.
package bus

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecomcore/orderflow/internal/event"
)

// Receipt acknowledges that a publish was accepted by the router. It says
// nothing about whether any subscriber has processed the envelope yet.
type Receipt struct {
	MessageID string
}

// Delivery is one envelope handed to one subscriber. MessageID is stable
// across redeliveries of the same message, which is what makes downstream
// idempotency keyed by it possible.
type Delivery struct {
	MessageID string
	Envelope  event.Envelope
}

// Handler processes a single delivery. Returning an error from a queued
// subscriber leaves the message unacknowledged and eligible for redelivery.
type Handler func(ctx context.Context, d Delivery) error

// Filter is an allowlist predicate over the envelope's event type. A nil
// Filter matches every envelope.
type Filter struct {
	allow map[event.Type]struct{}
}

// NewFilter builds a filter matching only the given event types.
func NewFilter(types ...event.Type) *Filter {
	allow := make(map[event.Type]struct{}, len(types))
	for _, t := range types {
		allow[t] = struct{}{}
	}
	return &Filter{allow: allow}
}

// Matches reports whether an envelope of type t passes the filter.
func (f *Filter) Matches(t event.Type) bool {
	if f == nil {
		return true
	}
	_, ok := f.allow[t]
	return ok
}

type directSub struct {
	name    string
	filter  *Filter
	handler Handler
}

type queueSub struct {
	name   string
	filter *Filter
	queue  *Queue
}

// Bus routes published envelopes to subscribers. Fan-out is independent per
// subscriber: a failing or panicking push-direct subscriber never blocks
// delivery to the others.
type Bus struct {
	lg *zap.Logger

	mu     sync.RWMutex
	direct []directSub
	queues []queueSub
}

// New creates an empty Bus.
func New(lg *zap.Logger) *Bus {
	return &Bus{lg: lg}
}

// SubscribeFunc registers a push-direct subscriber, invoked synchronously
// per matching envelope.
func (b *Bus) SubscribeFunc(name string, filter *Filter, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.direct = append(b.direct, directSub{name: name, filter: filter, handler: h})
}

// SubscribeQueue registers a queued subscriber: matching envelopes are
// enqueued and later pulled by a BatchConsumer.
func (b *Bus) SubscribeQueue(name string, filter *Filter, q *Queue) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queues = append(b.queues, queueSub{name: name, filter: filter, queue: q})
}

// Publish assigns the envelope a message ID and fans it out to every
// matching subscriber. Push-direct subscriber errors are logged and do not
// fail the publish; a queue that cannot accept the message does, since the
// router then failed to take responsibility for the delivery.
func (b *Bus) Publish(ctx context.Context, env event.Envelope) (Receipt, error) {
	r := Receipt{MessageID: uuid.New().String()}

	b.mu.RLock()
	direct := b.direct
	queues := b.queues
	b.mu.RUnlock()

	for _, sub := range direct {
		if !sub.filter.Matches(env.EventType) {
			continue
		}
		b.invoke(ctx, sub, Delivery{MessageID: r.MessageID, Envelope: env})
	}

	var enqueueErr error
	for _, sub := range queues {
		if !sub.filter.Matches(env.EventType) {
			continue
		}
		err := sub.queue.Enqueue(Message{ID: r.MessageID, Envelope: env})
		if err != nil {
			b.lg.Error("Enqueue failed",
				zap.String("subscriber", sub.name),
				zap.String("event_type", string(env.EventType)),
				zap.Error(err))
			if enqueueErr == nil {
				enqueueErr = errors.Wrapf(err, "enqueue to %s", sub.name)
			}
		}
	}

	return r, enqueueErr
}

// invoke runs one push-direct subscriber, containing errors and panics so
// the remaining fan-out proceeds.
func (b *Bus) invoke(ctx context.Context, sub directSub, d Delivery) {
	defer func() {
		if rec := recover(); rec != nil {
			b.lg.Error("Subscriber panicked",
				zap.String("subscriber", sub.name),
				zap.Any("panic", rec),
				zap.Stack("stack"))
		}
	}()

	if err := sub.handler(ctx, d); err != nil {
		b.lg.Error("Subscriber failed",
			zap.String("subscriber", sub.name),
			zap.String("event_type", string(d.Envelope.EventType)),
			zap.String("message_id", d.MessageID),
			zap.Error(err))
	}
}
