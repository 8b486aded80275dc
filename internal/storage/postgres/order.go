package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ecomcore/orderflow/internal/domain/order"
)

const (
	orderColumns = `email, id, created_at, shipping_type, shipping_carrier, payment, total_price, products`

	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE email = $1 AND id = $2`

	getOrdersByEmailSQL = `SELECT ` + orderColumns + ` FROM orders WHERE email = $1 ORDER BY created_at, id`

	// Full table scan; kept for the unfiltered listing endpoint only.
	getAllOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at, id`

	// DELETE ... RETURNING is the single atomic read-and-remove: of two
	// concurrent deletes, only one gets the row back.
	deleteOrderSQL = `DELETE FROM orders WHERE email = $1 AND id = $2 RETURNING ` + orderColumns
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Line items are serialized to JSON for
// storage in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	productsJSON, err := json.Marshal(o.Products)
	if err != nil {
		return errors.Wrap(err, "marshal order products")
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.Email, o.ID, o.CreatedAt,
		string(o.Shipping.Type), string(o.Shipping.Carrier),
		string(o.Billing.Payment), o.Billing.TotalPrice,
		productsJSON,
	)
	if err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}
	return nil
}

// Get returns a single order by its composite key.
func (r *OrderRepository) Get(ctx context.Context, email, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, email, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	return &o, nil
}

// GetByEmail returns the customer's orders, oldest first.
func (r *OrderRepository) GetByEmail(ctx context.Context, email string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrdersByEmailSQL, email)
	if err != nil {
		return nil, errors.Wrap(err, "get orders by email")
	}
	return pgx.CollectRows(rows, scanOrder)
}

// GetAll returns every order in the store.
func (r *OrderRepository) GetAll(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, getAllOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "get all orders")
	}
	return pgx.CollectRows(rows, scanOrder)
}

// Delete atomically removes the order and returns its prior state, or
// order.ErrNotFound when the row was already gone.
func (r *OrderRepository) Delete(ctx context.Context, email, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, deleteOrderSQL, email, id)
	if err != nil {
		return nil, errors.Wrapf(err, "delete order %q", id)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "delete order %q", id)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o            order.Order
		shippingType string
		carrier      string
		payment      string
		total        decimal.Decimal
		productsJSON []byte
	)
	err := row.Scan(
		&o.Email, &o.ID, &o.CreatedAt,
		&shippingType, &carrier, &payment, &total,
		&productsJSON,
	)
	if err != nil {
		return order.Order{}, err
	}

	o.Shipping = order.Shipping{Type: order.ShippingType(shippingType), Carrier: order.Carrier(carrier)}
	o.Billing = order.Billing{Payment: order.PaymentType(payment), TotalPrice: total}
	if err := json.Unmarshal(productsJSON, &o.Products); err != nil {
		return order.Order{}, errors.Wrap(err, "decode order products")
	}
	return o, nil
}
