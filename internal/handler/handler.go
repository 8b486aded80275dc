// Package handler exposes the HTTP surface of the order pipeline.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/ecomcore/orderflow/internal/domain/order"
	"github.com/ecomcore/orderflow/internal/eventlog"
)

// Handler serves the order API, delegating business logic to the order
// service and the event log query service.
type Handler struct {
	orders *order.Service
	events *eventlog.QueryService
}

// New constructs a Handler with the required dependencies.
func New(orders *order.Service, events *eventlog.QueryService) *Handler {
	return &Handler{orders: orders, events: events}
}

// Routes returns the router for the order API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Get("/", h.getOrders)
		r.Delete("/", h.deleteOrder)
		r.Get("/events", h.getOrderEvents)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

// serverError hides infrastructure details from the caller: store or router
// trouble is operational, not a business-rule violation.
func serverError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Internal Server Error")
}
