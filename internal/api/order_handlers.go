package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/example/artisan-shop/internal/order"
)

// EventPublisher emits order lifecycle events, satisfied by the Kafka
// producer.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// OrderHandlers serves the admin order screens: list, detail and status
// transitions. Orders are created only by the webhook reconciler.
type OrderHandlers struct {
	store     *order.PostgresStore
	publisher EventPublisher
}

func NewOrderHandlers(store *order.PostgresStore, publisher EventPublisher) *OrderHandlers {
	return &OrderHandlers{store: store, publisher: publisher}
}

func (h *OrderHandlers) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.ListOrders(r.Context())
	if err != nil {
		log.Printf("[API] Error listing orders: %v", err)
		respondJSONError(w, "failed to fetch orders", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *OrderHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/admin/orders/")
	o, err := h.store.GetOrder(r.Context(), id)
	if errors.Is(err, order.ErrOrderNotFound) {
		respondJSONError(w, "order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("[API] Error getting order %s: %v", id, err)
		respondJSONError(w, "failed to fetch order", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// UpdateStatus moves an order through its lifecycle
// (paid -> shipped -> delivered, or cancellation).
func (h *OrderHandlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/admin/orders/"), "/status")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	target, err := order.ParseStatus(req.Status)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, previous, err := h.store.UpdateStatus(r.Context(), id, target)
	switch {
	case err == nil:
		h.publishStatusChanged(r.Context(), updated, previous)
		respondJSON(w, http.StatusOK, updated)
	case errors.Is(err, order.ErrOrderNotFound):
		respondJSONError(w, "order not found", http.StatusNotFound)
	case errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrOrderCancelled),
		errors.Is(err, order.ErrOrderShipped),
		errors.Is(err, order.ErrOrderNotPaid):
		respondJSONError(w, err.Error(), http.StatusConflict)
	default:
		log.Printf("[API] Error updating order %s status: %v", id, err)
		respondJSONError(w, "failed to update order", http.StatusInternalServerError)
	}
}

// publishStatusChanged is best effort: the transition is already durable.
func (h *OrderHandlers) publishStatusChanged(ctx context.Context, o *order.Order, previous order.Status) {
	if h.publisher == nil {
		return
	}
	event := order.Event{
		Type:       order.EventOrderStatusChanged,
		OrderID:    o.ID,
		OccurredAt: time.Now(),
		Data: order.OrderStatusChanged{
			OrderID: o.ID,
			From:    string(previous),
			To:      string(o.Status),
		},
	}
	if err := h.publisher.Publish(ctx, o.ID, event); err != nil {
		log.Printf("[API] Failed to publish %s for order %s: %v", order.EventOrderStatusChanged, o.ID, err)
	}
}
