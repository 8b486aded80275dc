package bus

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ConsumerConfig tunes the batch consumer loop.
type ConsumerConfig struct {
	// BatchSize caps how many messages one Receive call returns.
	BatchSize int
	// Wait bounds how long Receive accumulates a batch after the first message.
	Wait time.Duration
}

// BatchConsumer drains a queue in batches and feeds each message to a
// handler. A handler error leaves the message unacknowledged: the queue
// redelivers it until the dead-letter ceiling is reached.
type BatchConsumer struct {
	queue   *Queue
	handler Handler
	cfg     ConsumerConfig
	lg      *zap.Logger
}

// NewBatchConsumer creates a consumer for the given queue and handler.
func NewBatchConsumer(q *Queue, h Handler, cfg ConsumerConfig, lg *zap.Logger) *BatchConsumer {
	return &BatchConsumer{queue: q, handler: h, cfg: cfg, lg: lg}
}

// Run pulls batches until ctx is cancelled. Each unit of work runs to
// completion or failure independently; there is no mid-flight cancellation
// of an individual message.
func (c *BatchConsumer) Run(ctx context.Context) error {
	for {
		msgs, err := c.queue.Receive(ctx, c.cfg.BatchSize, c.cfg.Wait)
		if err != nil {
			// Receive only errors on context cancellation.
			return nil
		}

		for _, m := range msgs {
			if err := c.handler(ctx, Delivery{MessageID: m.ID, Envelope: m.Envelope}); err != nil {
				c.lg.Warn("Message processing failed",
					zap.String("message_id", m.ID),
					zap.Int("receive_count", m.ReceiveCount),
					zap.Error(err))
				c.queue.Nack(m)
				continue
			}
			c.queue.Ack(m)
		}
	}
}
