package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ecomcore/orderflow/internal/bus"
	"github.com/ecomcore/orderflow/internal/domain/order"
	"github.com/ecomcore/orderflow/internal/domain/product"
	"github.com/ecomcore/orderflow/internal/event"
	"github.com/ecomcore/orderflow/internal/eventlog"
	"github.com/ecomcore/orderflow/internal/storage/memory"
)

// fixture wires the full pipeline against in-memory stores: handler, order
// service, bus with the audit sink subscribed push-direct.
type fixture struct {
	router http.Handler
}

func newFixture(t *testing.T, products ...product.Product) *fixture {
	t.Helper()
	lg := zap.NewNop()

	catalog := memory.NewProductCatalog(products...)
	orders := memory.NewOrderStore()

	logStore := eventlog.NewMemoryStore(eventlog.OrderKeyPrefix)
	sink := eventlog.NewSink(logStore, 5*time.Minute, lg)

	b := bus.New(lg)
	b.SubscribeFunc("order-events", bus.NewFilter(event.OrderCreated, event.OrderDeleted), sink.Handle)

	svc := order.NewService(catalog, orders, b, lg)
	h := New(svc, eventlog.NewQueryService(logStore))
	return &fixture{router: h.Routes()}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func catalogProduct(id, code, price string) product.Product {
	return product.Product{
		ID:    id,
		Code:  code,
		Name:  "Product " + code,
		Price: decimal.RequireFromString(price),
	}
}

const validOrderBody = `{
	"email": "a@b.com",
	"productIds": ["p1", "p2"],
	"payment": "CASH",
	"shipping": {"type": "URGENT", "carrier": "UPS"}
}`

func TestCreateOrderHappyPath(t *testing.T) {
	f := newFixture(t, catalogProduct("p1", "P1", "10.00"), catalogProduct("p2", "P2", "15.00"))

	rec := f.do(t, http.MethodPost, "/orders", validOrderBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "a@b.com", created.Email)
	assert.Equal(t, 25.0, created.Billing.TotalPrice)
	assert.Equal(t, "CASH", created.Billing.Payment)
	require.Len(t, created.Products, 2)
	assert.Equal(t, "P1", created.Products[0].Code)

	// Exact lookup returns the same order.
	rec = f.do(t, http.MethodGet, "/orders?email=a@b.com&orderId="+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, created.Billing.TotalPrice, fetched.Billing.TotalPrice)

	// The audit trail has the creation event.
	rec = f.do(t, http.MethodGet, "/orders/events?email=a@b.com&eventType=ORDER_CREATED", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []eventlog.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, created.ID, events[0].OrderID)
	assert.Equal(t, "ORDER_CREATED", events[0].EventType)
	assert.Equal(t, []string{"P1", "P2"}, events[0].ProductCodes)
}

func TestCreateOrderIgnoresClientTotal(t *testing.T) {
	f := newFixture(t, catalogProduct("p1", "P1", "10.00"), catalogProduct("p2", "P2", "15.00"))

	body := `{
		"email": "a@b.com",
		"productIds": ["p1", "p2"],
		"payment": "CASH",
		"billing": {"totalPrice": 0.01},
		"shipping": {"type": "URGENT", "carrier": "UPS"}
	}`
	rec := f.do(t, http.MethodPost, "/orders", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 25.0, created.Billing.TotalPrice, "total is always the catalog sum")
}

func TestCreateOrderMissingProduct(t *testing.T) {
	f := newFixture(t, catalogProduct("p1", "P1", "10.00"))

	body := `{
		"email": "a@b.com",
		"productIds": ["p1", "ghost"],
		"payment": "CASH",
		"shipping": {"type": "ECONOMIC", "carrier": "DHL"}
	}`
	rec := f.do(t, http.MethodPost, "/orders", body)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "A product was not found")

	// Nothing persisted, nothing published.
	rec = f.do(t, http.MethodGet, "/orders?email=a@b.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = f.do(t, http.MethodGet, "/orders/events?email=a@b.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t, catalogProduct("p1", "P1", "10.00"))

	tests := []struct {
		name string
		body string
	}{
		{"malformed body", `{"email": `},
		{"missing email", `{"productIds":["p1"],"payment":"CASH","shipping":{"type":"URGENT","carrier":"UPS"}}`},
		{"empty products", `{"email":"a@b.com","productIds":[],"payment":"CASH","shipping":{"type":"URGENT","carrier":"UPS"}}`},
		{"bad payment", `{"email":"a@b.com","productIds":["p1"],"payment":"IOU","shipping":{"type":"URGENT","carrier":"UPS"}}`},
		{"bad shipping type", `{"email":"a@b.com","productIds":["p1"],"payment":"CASH","shipping":{"type":"TELEPORT","carrier":"UPS"}}`},
		{"bad carrier", `{"email":"a@b.com","productIds":["p1"],"payment":"CASH","shipping":{"type":"URGENT","carrier":"PIGEON"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/orders", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetOrdersListings(t *testing.T) {
	f := newFixture(t, catalogProduct("p1", "P1", "10.00"))

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/orders",
		`{"email":"a@b.com","productIds":["p1"],"payment":"CASH","shipping":{"type":"URGENT","carrier":"UPS"}}`).Code)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/orders",
		`{"email":"c@d.com","productIds":["p1"],"payment":"DEBIT_CARD","shipping":{"type":"ECONOMIC","carrier":"FEDEX"}}`).Code)

	rec := f.do(t, http.MethodGet, "/orders?email=a@b.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "a@b.com", list[0].Email)

	rec = f.do(t, http.MethodGet, "/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	rec = f.do(t, http.MethodGet, "/orders?orderId=ord-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/orders?email=a@b.com&orderId=missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteOrder(t *testing.T) {
	f := newFixture(t, catalogProduct("p1", "P1", "10.00"))

	rec := f.do(t, http.MethodPost, "/orders",
		`{"email":"a@b.com","productIds":["p1"],"payment":"CASH","shipping":{"type":"URGENT","carrier":"UPS"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = f.do(t, http.MethodDelete, "/orders?email=a@b.com&orderId="+created.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Second delete of the same order is a 404.
	rec = f.do(t, http.MethodDelete, "/orders?email=a@b.com&orderId="+created.ID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Both lifecycle transitions are on the audit trail.
	rec = f.do(t, http.MethodGet, "/orders/events?email=a@b.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []eventlog.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, "ORDER_CREATED", events[0].EventType)
	assert.Equal(t, "ORDER_DELETED", events[1].EventType)

	rec = f.do(t, http.MethodDelete, "/orders?email=a@b.com", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrderEventsRequiresEmail(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/orders/events", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
