package notify

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/ecomcore/orderflow/internal/bus"
)

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

var _ Sender = (*LogSender)(nil)

// LogSender writes the email to the log instead of an SMTP gateway. Used in
// development and tests; production wires a real gateway behind the same
// interface.
type LogSender struct {
	lg *zap.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(lg *zap.Logger) *LogSender {
	return &LogSender{lg: lg}
}

func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	s.lg.Info("Email sent",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}

// EmailNotifier is the queued consumer handler for order notifications.
// Processing is idempotent per message ID: a redelivered message that was
// already sent is acknowledged without a second user-visible email.
type EmailNotifier struct {
	sender    Sender
	processed ProcessedLog
	lg        *zap.Logger
}

// NewEmailNotifier creates the notifier.
func NewEmailNotifier(sender Sender, processed ProcessedLog, lg *zap.Logger) *EmailNotifier {
	return &EmailNotifier{sender: sender, processed: processed, lg: lg}
}

// Handle sends the order-received email for one delivery. Any error leaves
// the message unacknowledged, so the queue redelivers it until the
// dead-letter ceiling.
func (n *EmailNotifier) Handle(ctx context.Context, d bus.Delivery) error {
	seen, err := n.processed.Seen(ctx, d.MessageID)
	if err != nil {
		return errors.Wrap(err, "check processed")
	}
	if seen {
		n.lg.Debug("Duplicate delivery skipped", zap.String("message_id", d.MessageID))
		return nil
	}

	ev, err := d.Envelope.OrderEvent()
	if err != nil {
		return errors.Wrap(err, "unwrap envelope")
	}

	body := fmt.Sprintf("Received order %s with total amount of %.2f", ev.OrderID, ev.Billing.TotalPrice)
	if err := n.sender.Send(ctx, ev.Email, "Order Received", body); err != nil {
		return errors.Wrap(err, "send email")
	}

	// A failed Mark only risks one duplicate suppression, not a lost email.
	if err := n.processed.Mark(ctx, d.MessageID); err != nil {
		n.lg.Warn("Mark processed failed", zap.String("message_id", d.MessageID), zap.Error(err))
	}
	return nil
}
