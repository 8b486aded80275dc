package bus

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ecomcore/orderflow/internal/event"
)

func TestQueueReceiveBatches(t *testing.T) {
	q := NewQueue("test", 16, 3, zap.NewNop())
	for i := 0; i < 7; i++ {
		require.NoError(t, q.Enqueue(Message{ID: "m", Envelope: testEnvelope(event.OrderCreated)}))
	}

	batch, err := q.Receive(context.Background(), 5, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, batch, 5, "batch is capped at max")

	batch, err = q.Receive(context.Background(), 5, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, batch, 2, "remaining messages delivered after wait window")
}

func TestQueueReceiveRespectsContext(t *testing.T) {
	q := NewQueue("test", 16, 3, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Receive(ctx, 5, time.Second)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueRedeliveryThenDeadLetter(t *testing.T) {
	q := NewQueue("test", 16, 3, zap.NewNop())
	require.NoError(t, q.Enqueue(Message{ID: "poison", Envelope: testEnvelope(event.OrderCreated)}))

	// Three deliveries, each nacked.
	for attempt := 1; attempt <= 3; attempt++ {
		batch, err := q.Receive(context.Background(), 1, 10*time.Millisecond)
		require.NoError(t, err)
		require.Len(t, batch, 1)
		assert.Equal(t, attempt, batch[0].ReceiveCount)
		q.Nack(batch[0])
	}

	// Fourth receive never happens: the message is dead-lettered.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := q.Receive(ctx, 1, 10*time.Millisecond)
	require.Error(t, err)

	dead := q.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, "poison", dead[0].ID)
	assert.Equal(t, 3, dead[0].ReceiveCount)
}

func TestQueueEnqueueFull(t *testing.T) {
	q := NewQueue("tiny", 1, 3, zap.NewNop())
	require.NoError(t, q.Enqueue(Message{ID: "a"}))
	require.ErrorIs(t, q.Enqueue(Message{ID: "b"}), ErrQueueFull)
}

func TestBatchConsumerDeadLettersPoisonMessage(t *testing.T) {
	q := NewQueue("emails", 16, 3, zap.NewNop())
	require.NoError(t, q.Enqueue(Message{ID: "poison", Envelope: testEnvelope(event.OrderCreated)}))

	attempts := 0
	consumer := NewBatchConsumer(q, func(context.Context, Delivery) error {
		attempts++
		return errors.New("smtp unavailable")
	}, ConsumerConfig{BatchSize: 5, Wait: 5 * time.Millisecond}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, consumer.Run(ctx))

	assert.Equal(t, 3, attempts, "handler sees the message exactly maxReceive times")
	require.Len(t, q.DeadLetters(), 1)
	assert.Equal(t, "poison", q.DeadLetters()[0].ID)
}

func TestBatchConsumerAcksSuccess(t *testing.T) {
	q := NewQueue("emails", 16, 3, zap.NewNop())
	require.NoError(t, q.Enqueue(Message{ID: "ok", Envelope: testEnvelope(event.OrderCreated)}))

	consumer := NewBatchConsumer(q, func(context.Context, Delivery) error {
		return nil
	}, ConsumerConfig{BatchSize: 5, Wait: 5 * time.Millisecond}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, consumer.Run(ctx))

	stats := q.Stats()
	assert.Equal(t, 1, stats.Acked)
	assert.Zero(t, stats.Redelivered)
	assert.Empty(t, q.DeadLetters())
}
