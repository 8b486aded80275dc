package eventlog

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

const (
	recordKeyPrefix = "orderflow:event:"
	indexKeyPrefix  = "orderflow:events:"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps each record under its own key with a native TTL, plus a
// per-customer sorted-set index scored by creation time. Expired records
// vanish on their own; the index is trimmed lazily during queries.
type RedisStore struct {
	rdb        redis.UniversalClient
	namespaces []string
}

// NewRedisStore creates a store that may only append records under the
// given partition-key namespaces.
func NewRedisStore(rdb redis.UniversalClient, namespaces ...string) *RedisStore {
	return &RedisStore{rdb: rdb, namespaces: namespaces}
}

func (s *RedisStore) allowed(pk string) bool {
	for _, ns := range s.namespaces {
		if strings.HasPrefix(pk, ns) {
			return true
		}
	}
	return false
}

// Append stores the record with its remaining time-to-live. Records whose
// TTL already elapsed are dropped silently.
func (s *RedisStore) Append(ctx context.Context, rec Record) error {
	if !s.allowed(rec.PK) {
		return errors.Wrap(ErrKeyOutsideNamespace, rec.PK)
	}

	ttl := time.Until(time.Unix(rec.TTL, 0))
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal record")
	}

	key := recordKeyPrefix + rec.PK + ":" + rec.SK
	index := indexKeyPrefix + rec.Email

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, key, data, ttl)
	pipe.ZAdd(ctx, index, redis.Z{Score: float64(rec.CreatedAt), Member: key})
	// The index must outlive its newest record.
	pipe.Expire(ctx, index, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "append record")
	}
	return nil
}

// QueryByEmail loads the customer's index, fetches the surviving records,
// and filters by event-type prefix. Index members whose record expired are
// removed as a side effect.
func (s *RedisStore) QueryByEmail(ctx context.Context, email, eventTypePrefix string) ([]Record, error) {
	index := indexKeyPrefix + email

	keys, err := s.rdb.ZRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "read index")
	}
	if len(keys) == 0 {
		return nil, nil
	}

	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "read records")
	}

	var (
		out   []Record
		stale []interface{}
	)
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, keys[i])
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, errors.Wrapf(err, "decode record %s", keys[i])
		}
		if strings.HasPrefix(rec.EventType, eventTypePrefix) {
			out = append(out, rec)
		}
	}

	if len(stale) > 0 {
		// Best effort; expired entries get trimmed again next query.
		s.rdb.ZRem(ctx, index, stale...)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].SK < out[j].SK
	})
	return out, nil
}
