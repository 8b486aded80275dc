// Package eventlog persists a short-lived, queryable audit trail of
// lifecycle events: one record per envelope delivered to the audit sink,
// expiring after a retention window.
package eventlog

import (
	"context"
	"strconv"

	"github.com/go-faster/errors"
)

// ErrKeyOutsideNamespace is returned when a writer tries to append a record
// whose partition key falls outside the namespaces it was granted at store
// construction. The check replaces infrastructure-level key policies with an
// explicit precondition.
var ErrKeyOutsideNamespace = errors.New("record key outside permitted namespace")

// OrderKeyPrefix is the partition-key namespace for order lifecycle records.
const OrderKeyPrefix = "#order_"

// Info is the nested detail block of a record.
type Info struct {
	OrderID      string   `json:"orderId"`
	ProductCodes []string `json:"productCodes"`
	// MessageID is the bus message that produced this record; it stays
	// stable across redeliveries, which keeps appends idempotent.
	MessageID string `json:"messageId"`
}

// Record is one durable audit entry. Identity is (PK, SK): the sort key
// embeds the creation timestamp, so each event occurrence gets its own
// record while a redelivered message overwrites its earlier copy.
type Record struct {
	PK        string `json:"pk"`
	SK        string `json:"sk"`
	TTL       int64  `json:"ttl"` // expiry, epoch seconds
	Email     string `json:"email"`
	CreatedAt int64  `json:"createdAt"` // epoch milliseconds
	RequestID string `json:"requestId"`
	EventType string `json:"eventType"`
	Info      Info   `json:"info"`
}

// OrderPK builds the partition key for an order's records.
func OrderPK(orderID string) string {
	return OrderKeyPrefix + orderID
}

// SortKey builds the sort key for an event occurrence at the given epoch
// millisecond timestamp. Ascending sort keys are chronological per event
// type because the timestamp is embedded.
func SortKey(eventType string, millis int64) string {
	return "#" + eventType + "#" + strconv.FormatInt(millis, 10)
}

// Store is the append-only event log.
type Store interface {
	// Append writes a record unconditionally; a later write with the same
	// (PK, SK) overwrites. The log is a best-effort audit trail, not a
	// ledger of record.
	Append(ctx context.Context, rec Record) error
	// QueryByEmail returns the customer's unexpired records whose event
	// type matches the prefix, in chronological order.
	QueryByEmail(ctx context.Context, email, eventTypePrefix string) ([]Record, error)
}
