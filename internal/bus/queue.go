package bus

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/ecomcore/orderflow/internal/event"
)

// ErrQueueFull is returned by Enqueue when the queue buffer has no room.
var ErrQueueFull = errors.New("queue full")

// Message is one unit of work on a Queue. ReceiveCount is incremented on
// every delivery, so the consumer sees how many attempts a message has had.
type Message struct {
	ID           string
	Envelope     event.Envelope
	ReceiveCount int
}

// QueueStats is a point-in-time snapshot of queue counters.
type QueueStats struct {
	Depth        int
	Acked        int
	Redelivered  int
	DeadLettered int
}

// Queue is a bounded in-process work queue with redelivery and dead-letter
// semantics. A message that is nacked maxReceive times is moved to the
// dead-letter slice for manual inspection instead of being retried forever.
//
// Delivery is at-least-once: message order across redeliveries is not
// guaranteed, since a nacked message re-enters behind newer ones.
type Queue struct {
	name       string
	maxReceive int
	messages   chan Message
	lg         *zap.Logger

	mu          sync.Mutex
	dead        []Message
	acked       int
	redelivered int
}

// NewQueue creates a queue holding up to buffer in-flight messages.
// Messages are dead-lettered after maxReceive unsuccessful deliveries.
func NewQueue(name string, buffer, maxReceive int, lg *zap.Logger) *Queue {
	return &Queue{
		name:       name,
		maxReceive: maxReceive,
		messages:   make(chan Message, buffer),
		lg:         lg.With(zap.String("queue", name)),
	}
}

// Enqueue adds a message, failing with ErrQueueFull when the buffer is at
// capacity. It never blocks the publisher.
func (q *Queue) Enqueue(m Message) error {
	select {
	case q.messages <- m:
		return nil
	default:
		return errors.Wrap(ErrQueueFull, q.name)
	}
}

// Receive blocks until at least one message is available (or ctx is done),
// then keeps accumulating up to max messages within the wait window. The
// batching window trades latency for fewer handler invocations.
func (q *Queue) Receive(ctx context.Context, max int, wait time.Duration) ([]Message, error) {
	var batch []Message

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case m := <-q.messages:
		m.ReceiveCount++
		batch = append(batch, m)
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for len(batch) < max {
		select {
		case <-ctx.Done():
			return batch, nil
		case <-timer.C:
			return batch, nil
		case m := <-q.messages:
			m.ReceiveCount++
			batch = append(batch, m)
		}
	}
	return batch, nil
}

// Ack marks a delivery as successfully processed.
func (q *Queue) Ack(m Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked++
}

// Nack returns an unprocessed message to the queue for redelivery, or moves
// it to the dead-letter sink once it has exhausted its delivery budget.
func (q *Queue) Nack(m Message) {
	if m.ReceiveCount >= q.maxReceive {
		q.deadLetter(m)
		return
	}

	q.mu.Lock()
	q.redelivered++
	q.mu.Unlock()

	select {
	case q.messages <- m:
	default:
		// No room to redeliver; losing the message silently would be worse.
		q.deadLetter(m)
	}
}

func (q *Queue) deadLetter(m Message) {
	q.mu.Lock()
	q.dead = append(q.dead, m)
	q.mu.Unlock()

	q.lg.Warn("Message dead-lettered",
		zap.String("message_id", m.ID),
		zap.String("event_type", string(m.Envelope.EventType)),
		zap.Int("receive_count", m.ReceiveCount))
}

// DeadLetters returns a copy of the dead-lettered messages.
func (q *Queue) DeadLetters() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Message, len(q.dead))
	copy(out, q.dead)
	return out
}

// Stats returns current queue counters.
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Depth:        len(q.messages),
		Acked:        q.acked,
		Redelivered:  q.redelivered,
		DeadLettered: len(q.dead),
	}
}
