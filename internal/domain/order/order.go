package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for order lookup and validation.
var (
	ErrNotFound      = errors.New("order not found")
	ErrEmptyProducts = errors.New("at least one product is required")
)

// ShippingType selects the delivery speed for an order.
type ShippingType string

// Supported shipping types.
const (
	ShippingEconomic ShippingType = "ECONOMIC"
	ShippingUrgent   ShippingType = "URGENT"
)

// ParseShippingType validates a wire-level shipping type.
func ParseShippingType(s string) (ShippingType, error) {
	switch t := ShippingType(s); t {
	case ShippingEconomic, ShippingUrgent:
		return t, nil
	}
	return "", errors.Errorf("invalid shipping type %q", s)
}

// Carrier identifies the shipping company.
type Carrier string

// Supported carriers.
const (
	CarrierUPS   Carrier = "UPS"
	CarrierFedEx Carrier = "FEDEX"
	CarrierDHL   Carrier = "DHL"
)

// ParseCarrier validates a wire-level carrier.
func ParseCarrier(s string) (Carrier, error) {
	switch c := Carrier(s); c {
	case CarrierUPS, CarrierFedEx, CarrierDHL:
		return c, nil
	}
	return "", errors.Errorf("invalid carrier %q", s)
}

// PaymentType selects the billing method.
type PaymentType string

// Supported payment types.
const (
	PaymentCash       PaymentType = "CASH"
	PaymentCreditCard PaymentType = "CREDIT_CARD"
	PaymentDebitCard  PaymentType = "DEBIT_CARD"
)

// ParsePaymentType validates a wire-level payment type.
func ParsePaymentType(s string) (PaymentType, error) {
	switch p := PaymentType(s); p {
	case PaymentCash, PaymentCreditCard, PaymentDebitCard:
		return p, nil
	}
	return "", errors.Errorf("invalid payment type %q", s)
}

// OrderProduct is one line item: the product code and its unit price as
// resolved from the catalog at creation time.
type OrderProduct struct {
	Code  string          `json:"code"`
	Price decimal.Decimal `json:"price"`
}

// Shipping holds the shipping selection of an order.
type Shipping struct {
	Type    ShippingType
	Carrier Carrier
}

// Billing holds the payment selection and the server-computed total.
type Billing struct {
	Payment    PaymentType
	TotalPrice decimal.Decimal
}

// Order is the aggregate root, identified by (Email, ID). Orders are
// immutable after creation; the only mutation is a hard delete.
type Order struct {
	Email     string
	ID        string
	CreatedAt time.Time
	Shipping  Shipping
	Billing   Billing
	Products  []OrderProduct
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, email, id string) (*Order, error)
	GetByEmail(ctx context.Context, email string) ([]Order, error)
	// GetAll scans the whole store. Avoid outside of debugging.
	GetAll(ctx context.Context) ([]Order, error)
	// Delete atomically removes the order and returns its prior state, so
	// that of two concurrent deletes exactly one observes the snapshot and
	// the other gets ErrNotFound.
	Delete(ctx context.Context, email, id string) (*Order, error)
}
