package eventlog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store for tests and local development.
// Expiry is enforced at query time instead of with a background reaper.
type MemoryStore struct {
	namespaces []string

	mu      sync.RWMutex
	records map[string]Record // keyed by PK + "|" + SK

	now func() time.Time
}

// NewMemoryStore creates a store that may only append records under the
// given partition-key namespaces.
func NewMemoryStore(namespaces ...string) *MemoryStore {
	return &MemoryStore{
		namespaces: namespaces,
		records:    make(map[string]Record),
		now:        time.Now,
	}
}

// Append stores the record, overwriting any record with the same identity.
func (s *MemoryStore) Append(_ context.Context, rec Record) error {
	ok := false
	for _, ns := range s.namespaces {
		if strings.HasPrefix(rec.PK, ns) {
			ok = true
			break
		}
	}
	if !ok {
		return errors.Wrap(ErrKeyOutsideNamespace, rec.PK)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.PK+"|"+rec.SK] = rec
	return nil
}

// QueryByEmail returns the customer's unexpired records matching the
// event-type prefix, in chronological order.
func (s *MemoryStore) QueryByEmail(_ context.Context, email, eventTypePrefix string) ([]Record, error) {
	cutoff := s.now().Unix()

	s.mu.RLock()
	var out []Record
	for _, rec := range s.records {
		if rec.Email != email || rec.TTL <= cutoff {
			continue
		}
		if strings.HasPrefix(rec.EventType, eventTypePrefix) {
			out = append(out, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].SK < out[j].SK
	})
	return out, nil
}
