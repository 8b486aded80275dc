package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecomcore/orderflow/internal/domain/order"
)

func newOrder(email, id string, at time.Time) *order.Order {
	return &order.Order{
		Email:     email,
		ID:        id,
		CreatedAt: at,
		Shipping:  order.Shipping{Type: order.ShippingEconomic, Carrier: order.CarrierUPS},
		Billing:   order.Billing{Payment: order.PaymentCash, TotalPrice: decimal.NewFromInt(10)},
		Products:  []order.OrderProduct{{Code: "P1", Price: decimal.NewFromInt(10)}},
	}
}

func TestOrderStoreCRUD(t *testing.T) {
	s := NewOrderStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Create(ctx, newOrder("a@b.com", "ord-1", now)))
	require.NoError(t, s.Create(ctx, newOrder("a@b.com", "ord-2", now.Add(time.Second))))
	require.NoError(t, s.Create(ctx, newOrder("c@d.com", "ord-3", now)))

	got, err := s.Get(ctx, "a@b.com", "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "ord-1", got.ID)

	_, err = s.Get(ctx, "a@b.com", "missing")
	require.ErrorIs(t, err, order.ErrNotFound)

	byEmail, err := s.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.Len(t, byEmail, 2)
	assert.Equal(t, "ord-1", byEmail[0].ID, "oldest first")

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	prior, err := s.Delete(ctx, "a@b.com", "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "ord-1", prior.ID)

	_, err = s.Delete(ctx, "a@b.com", "ord-1")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestOrderStoreConcurrentDelete(t *testing.T) {
	s := NewOrderStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newOrder("a@b.com", "ord-1", time.Now())))

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		snapshots int
		notFound  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prior, err := s.Delete(ctx, "a@b.com", "ord-1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && prior != nil:
				snapshots++
			case errors.Is(err, order.ErrNotFound):
				notFound++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, snapshots, "exactly one delete observes the snapshot")
	assert.Equal(t, attempts-1, notFound)
}
