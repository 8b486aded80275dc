// Package notify holds the downstream consumers of order events: the
// queued email notifier and the push-direct payment notifier.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

// ProcessedLog tracks which bus messages already produced their side
// effect, keyed by message ID. It is what makes redelivery invisible to the
// customer: a redelivered message is skipped, not re-sent.
type ProcessedLog interface {
	Seen(ctx context.Context, messageID string) (bool, error)
	Mark(ctx context.Context, messageID string) error
}

var _ ProcessedLog = (*MemoryProcessedLog)(nil)

// MemoryProcessedLog is an in-process ProcessedLog for tests and local use.
type MemoryProcessedLog struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryProcessedLog creates an empty log.
func NewMemoryProcessedLog() *MemoryProcessedLog {
	return &MemoryProcessedLog{seen: make(map[string]struct{})}
}

func (l *MemoryProcessedLog) Seen(_ context.Context, messageID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[messageID]
	return ok, nil
}

func (l *MemoryProcessedLog) Mark(_ context.Context, messageID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[messageID] = struct{}{}
	return nil
}

const processedKeyPrefix = "orderflow:notified:"

var _ ProcessedLog = (*RedisProcessedLog)(nil)

// RedisProcessedLog keeps processed-message markers in redis with a TTL, so
// the dedup window survives process restarts without growing unbounded.
type RedisProcessedLog struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewRedisProcessedLog creates a log whose markers expire after ttl.
func NewRedisProcessedLog(rdb redis.UniversalClient, ttl time.Duration) *RedisProcessedLog {
	return &RedisProcessedLog{rdb: rdb, ttl: ttl}
}

func (l *RedisProcessedLog) Seen(ctx context.Context, messageID string) (bool, error) {
	n, err := l.rdb.Exists(ctx, processedKeyPrefix+messageID).Result()
	if err != nil {
		return false, errors.Wrap(err, "check processed marker")
	}
	return n > 0, nil
}

func (l *RedisProcessedLog) Mark(ctx context.Context, messageID string) error {
	if err := l.rdb.Set(ctx, processedKeyPrefix+messageID, "1", l.ttl).Err(); err != nil {
		return errors.Wrap(err, "set processed marker")
	}
	return nil
}
