package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ecomcore/orderflow/internal/bus"
	"github.com/ecomcore/orderflow/internal/domain/product"
	"github.com/ecomcore/orderflow/internal/event"
)

// ErrProductNotFound indicates at least one requested product is missing
// from the catalog; the order is rejected and nothing is persisted.
var ErrProductNotFound = errors.New("a product was not found")

// EventPublisher broadcasts an envelope to the topic router.
type EventPublisher interface {
	Publish(ctx context.Context, env event.Envelope) (bus.Receipt, error)
}

// CreateRequest holds the validated input for creating an order.
type CreateRequest struct {
	Email      string
	ProductIDs []string
	Payment    PaymentType
	Shipping   Shipping
	RequestID  string
}

// Service is the transactional boundary of the order pipeline: it validates
// requests against the catalog, persists orders, and publishes lifecycle
// events.
type Service struct {
	catalog   product.Repository
	orders    Repository
	publisher EventPublisher

	publishTimeout time.Duration
	lg             *zap.Logger
}

// NewService creates an order Service with the required dependencies.
func NewService(catalog product.Repository, orders Repository, publisher EventPublisher, lg *zap.Logger) *Service {
	return &Service{
		catalog:        catalog,
		orders:         orders,
		publisher:      publisher,
		publishTimeout: 2 * time.Second,
		lg:             lg,
	}
}

// Create resolves every requested product, computes the total server-side,
// persists the order, and publishes ORDER_CREATED.
//
// Persistence and publication are deliberately independent: the order write
// must succeed first, and a publish failure does not roll it back. The
// caller still gets the created order while the notification pipeline may
// lag. Duplicate or late events are tolerable; a lost order is not.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if len(req.ProductIDs) == 0 {
		return nil, ErrEmptyProducts
	}

	products, err := s.catalog.GetByIDs(ctx, req.ProductIDs)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	if len(products) != len(req.ProductIDs) {
		return nil, ErrProductNotFound
	}

	// Total price is always the catalog sum, never a client value.
	total := decimal.Zero
	items := make([]OrderProduct, len(products))
	for i, p := range products {
		total = total.Add(p.Price)
		items[i] = OrderProduct{Code: p.Code, Price: p.Price}
	}

	o := &Order{
		Email:     req.Email,
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Shipping:  req.Shipping,
		Billing:   Billing{Payment: req.Payment, TotalPrice: total},
		Products:  items,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	s.publishEvent(ctx, event.OrderCreated, o, req.RequestID)
	return o, nil
}

// Get returns a single order, or ErrNotFound.
func (s *Service) Get(ctx context.Context, email, id string) (*Order, error) {
	return s.orders.Get(ctx, email, id)
}

// ListByEmail returns all orders of one customer.
func (s *Service) ListByEmail(ctx context.Context, email string) ([]Order, error) {
	return s.orders.GetByEmail(ctx, email)
}

// ListAll returns every order in the store. Full-scan semantics; kept for
// parity with the API but discouraged for anything but debugging.
func (s *Service) ListAll(ctx context.Context) ([]Order, error) {
	return s.orders.GetAll(ctx)
}

// Delete removes the order, returns its prior state, and publishes
// ORDER_DELETED with the same envelope shape as creation. A concurrent
// delete that lost the race gets ErrNotFound and publishes nothing.
func (s *Service) Delete(ctx context.Context, email, id, requestID string) (*Order, error) {
	o, err := s.orders.Delete(ctx, email, id)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, event.OrderDeleted, o, requestID)
	return o, nil
}

// publishEvent wraps the order into an envelope and hands it to the router
// with a bounded timeout. Failures are logged only: the enclosing write has
// already committed and its response must still report that success.
func (s *Service) publishEvent(ctx context.Context, t event.Type, o *Order, requestID string) {
	codes := make([]string, len(o.Products))
	for i, p := range o.Products {
		codes[i] = p.Code
	}

	env, err := event.NewOrderEnvelope(t, event.OrderEvent{
		Email:        o.Email,
		OrderID:      o.ID,
		ProductCodes: codes,
		Billing: event.OrderBilling{
			Payment:    string(o.Billing.Payment),
			TotalPrice: o.Billing.TotalPrice.InexactFloat64(),
		},
		Shipping: event.OrderShipping{
			Type:    string(o.Shipping.Type),
			Carrier: string(o.Shipping.Carrier),
		},
		RequestID: requestID,
	})
	if err != nil {
		s.lg.Error("Build event envelope failed",
			zap.String("order_id", o.ID),
			zap.String("event_type", string(t)),
			zap.Error(err))
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	receipt, err := s.publisher.Publish(pubCtx, env)
	if err != nil {
		s.lg.Error("Publish failed, order write already committed",
			zap.String("order_id", o.ID),
			zap.String("event_type", string(t)),
			zap.Error(err))
		return
	}

	s.lg.Debug("Event published",
		zap.String("order_id", o.ID),
		zap.String("event_type", string(t)),
		zap.String("message_id", receipt.MessageID))
}
