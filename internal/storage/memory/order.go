// Package memory provides in-process implementations of the storage
// interfaces for tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ecomcore/orderflow/internal/domain/order"
)

var _ order.Repository = (*OrderStore)(nil)

// OrderStore keeps orders in a mutex-guarded map keyed by (email, id).
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]map[string]order.Order // email -> id -> order
}

// NewOrderStore creates an empty store.
func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]map[string]order.Order)}
}

// Create persists a new order.
func (s *OrderStore) Create(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.orders[o.Email]
	if !ok {
		byID = make(map[string]order.Order)
		s.orders[o.Email] = byID
	}
	byID[o.ID] = *o
	return nil
}

// Get returns one order or order.ErrNotFound.
func (s *OrderStore) Get(_ context.Context, email, id string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[email][id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return &o, nil
}

// GetByEmail returns the customer's orders, oldest first.
func (s *OrderStore) GetByEmail(_ context.Context, email string) ([]order.Order, error) {
	s.mu.RLock()
	out := make([]order.Order, 0, len(s.orders[email]))
	for _, o := range s.orders[email] {
		out = append(out, o)
	}
	s.mu.RUnlock()

	sortOrders(out)
	return out, nil
}

// GetAll returns every order. Full scan, debugging only.
func (s *OrderStore) GetAll(_ context.Context) ([]order.Order, error) {
	s.mu.RLock()
	var out []order.Order
	for _, byID := range s.orders {
		for _, o := range byID {
			out = append(out, o)
		}
	}
	s.mu.RUnlock()

	sortOrders(out)
	return out, nil
}

// Delete removes the order and returns its prior state. The lookup and
// removal happen under one lock, so concurrent deletes of the same key
// yield exactly one snapshot and one ErrNotFound.
func (s *OrderStore) Delete(_ context.Context, email, id string) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[email][id]
	if !ok {
		return nil, order.ErrNotFound
	}
	delete(s.orders[email], id)
	return &o, nil
}

func sortOrders(orders []order.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
}
