package handler

import (
	"net/http"
)

// getOrderEvents handles GET /orders/events: the customer's recent event
// history, optionally narrowed by an eventType prefix.
func (h *Handler) getOrderEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	email := q.Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	summaries, err := h.events.ByCustomer(r.Context(), email, q.Get("eventType"))
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}
