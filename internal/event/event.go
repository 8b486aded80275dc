// Package event defines the lifecycle event types and the transport envelope
// that carries them between the order pipeline and its subscribers.
package event

import (
	"encoding/json"

	"github.com/go-faster/errors"
)

// Type tags an envelope so subscribers can filter without decoding the payload.
type Type string

// Lifecycle event types published on the bus.
const (
	OrderCreated Type = "ORDER_CREATED"
	OrderDeleted Type = "ORDER_DELETED"

	ProductCreated Type = "PRODUCT_CREATED"
	ProductUpdated Type = "PRODUCT_UPDATED"
	ProductDeleted Type = "PRODUCT_DELETED"
)

// OrderBilling is the billing section of an order lifecycle event.
type OrderBilling struct {
	Payment    string  `json:"payment"`
	TotalPrice float64 `json:"totalPrice"`
}

// OrderShipping is the shipping section of an order lifecycle event.
type OrderShipping struct {
	Type    string `json:"type"`
	Carrier string `json:"carrier"`
}

// OrderEvent is the domain event payload for order lifecycle transitions.
// Consumers must not assume any payload shape beyond what the envelope's
// event type declares.
type OrderEvent struct {
	Email        string        `json:"email"`
	OrderID      string        `json:"orderId"`
	ProductCodes []string      `json:"productCodes"`
	Billing      OrderBilling  `json:"billing"`
	Shipping     OrderShipping `json:"shipping"`
	RequestID    string        `json:"requestId"`
}

// NewOrderEnvelope wraps an order event into a transport envelope of the
// given type. The payload is serialized once at wrap time; the envelope is
// immutable afterwards.
func NewOrderEnvelope(t Type, ev OrderEvent) (Envelope, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, errors.Wrap(err, "marshal order event")
	}
	return Envelope{EventType: t, Data: string(data)}, nil
}

// OrderEvent decodes the envelope payload as an order lifecycle event.
func (e Envelope) OrderEvent() (OrderEvent, error) {
	var ev OrderEvent
	if err := json.Unmarshal([]byte(e.Data), &ev); err != nil {
		return OrderEvent{}, errors.Wrapf(err, "decode %s payload", e.EventType)
	}
	return ev, nil
}
