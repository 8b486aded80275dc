package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/ecomcore/orderflow/internal/bus"
)

// PaymentNotifier is the push-direct subscriber for the payment processor.
// Delivery here is best-effort: a failure is logged by the router and never
// retried. The current integration only records the event.
type PaymentNotifier struct {
	lg *zap.Logger
}

// NewPaymentNotifier creates the notifier.
func NewPaymentNotifier(lg *zap.Logger) *PaymentNotifier {
	return &PaymentNotifier{lg: lg}
}

// Handle records the order event for the payment pipeline. The full wire
// envelope is logged so the record can be replayed against the processor.
func (n *PaymentNotifier) Handle(_ context.Context, d bus.Delivery) error {
	n.lg.Info("Order event on payments notifier",
		zap.String("message_id", d.MessageID),
		zap.String("event_type", string(d.Envelope.EventType)),
		zap.ByteString("envelope", d.Envelope.Encode()))
	return nil
}
