package eventlog

import (
	"context"

	"github.com/go-faster/errors"
)

// Summary is the read-side projection of a Record.
type Summary struct {
	Email        string   `json:"email"`
	CreatedAt    int64    `json:"createdAt"`
	EventType    string   `json:"eventType"`
	RequestID    string   `json:"requestId"`
	OrderID      string   `json:"orderId"`
	ProductCodes []string `json:"productCodes"`
}

// QueryService is the read-only path over the event log.
type QueryService struct {
	store Store
}

// NewQueryService creates a QueryService over the given store.
func NewQueryService(store Store) *QueryService {
	return &QueryService{store: store}
}

// ByCustomer returns the customer's event summaries, optionally narrowed by
// an event-type prefix. Without a prefix, all order events are returned.
func (q *QueryService) ByCustomer(ctx context.Context, email, eventTypePrefix string) ([]Summary, error) {
	if eventTypePrefix == "" {
		eventTypePrefix = "ORDER_"
	}

	records, err := q.store.QueryByEmail(ctx, email, eventTypePrefix)
	if err != nil {
		return nil, errors.Wrap(err, "query events")
	}

	out := make([]Summary, len(records))
	for i, rec := range records {
		out[i] = Summary{
			Email:        rec.Email,
			CreatedAt:    rec.CreatedAt,
			EventType:    rec.EventType,
			RequestID:    rec.RequestID,
			OrderID:      rec.Info.OrderID,
			ProductCodes: rec.Info.ProductCodes,
		}
	}
	return out, nil
}
