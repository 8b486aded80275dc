package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/ecomcore/orderflow/internal/domain/order"
	"github.com/ecomcore/orderflow/pkg/httpmiddleware"
)

// createOrder handles POST /orders: validates the request against the
// catalog, persists the order, and publishes ORDER_CREATED. A 201 response
// promises the order is stored; event delivery is best-effort on top.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	payment, err := order.ParsePaymentType(req.Payment)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	shippingType, err := order.ParseShippingType(req.Shipping.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	carrier, err := order.ParseCarrier(req.Shipping.Carrier)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.Create(r.Context(), order.CreateRequest{
		Email:      req.Email,
		ProductIDs: req.ProductIDs,
		Payment:    payment,
		Shipping:   order.Shipping{Type: shippingType, Carrier: carrier},
		RequestID:  httpmiddleware.RequestIDFromContext(r.Context()),
	})
	switch {
	case errors.Is(err, order.ErrEmptyProducts):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "A product was not found")
	case err != nil:
		serverError(w, r, err)
	default:
		writeJSON(w, http.StatusCreated, toOrderResponse(o))
	}
}

// getOrders handles GET /orders: exact lookup with email and orderId, a
// per-customer listing with email alone, or the full listing with no query.
func (h *Handler) getOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	email := q.Get("email")
	orderID := q.Get("orderId")

	switch {
	case email != "" && orderID != "":
		o, err := h.orders.Get(r.Context(), email, orderID)
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Order not found")
			return
		}
		if err != nil {
			serverError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toOrderResponse(o))

	case email != "":
		orders, err := h.orders.ListByEmail(r.Context(), email)
		if err != nil {
			serverError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toOrderResponses(orders))

	case orderID != "":
		writeError(w, http.StatusBadRequest, "email is required when orderId is given")

	default:
		orders, err := h.orders.ListAll(r.Context())
		if err != nil {
			serverError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toOrderResponses(orders))
	}
}

// deleteOrder handles DELETE /orders: hard delete returning 204. The prior
// snapshot feeds the ORDER_DELETED event inside the service.
func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	email := q.Get("email")
	orderID := q.Get("orderId")
	if email == "" || orderID == "" {
		writeError(w, http.StatusBadRequest, "email and orderId are required")
		return
	}

	_, err := h.orders.Delete(r.Context(), email, orderID, httpmiddleware.RequestIDFromContext(r.Context()))
	switch {
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "Order not found")
	case err != nil:
		serverError(w, r, err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
