package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/shopspring/decimal"

	"github.com/example/artisan-shop/internal/email"
	"github.com/example/artisan-shop/internal/order"
)

// Sender is satisfied by email.Service.
type Sender interface {
	SendOrderConfirmation(to, orderID string, total decimal.Decimal, items []email.OrderItem) error
}

// Handler turns order.created events into confirmation emails. The order
// carries a denormalized customer email, so no store lookup is needed.
type Handler struct {
	sender Sender
}

// NewHandler creates a new notification handler
func NewHandler(sender Sender) *Handler {
	return &Handler{sender: sender}
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event order.Event
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("[Notifier] Failed to unmarshal event: %v", err)
		return err
	}

	if event.Type != order.EventOrderCreated {
		return nil
	}

	// Data round-trips through the envelope as raw JSON.
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}
	var created order.OrderCreated
	if err := json.Unmarshal(raw, &created); err != nil {
		log.Printf("[Notifier] Failed to unmarshal %s event: %v", order.EventOrderCreated, err)
		return err
	}

	return h.handleOrderCreated(created)
}

func (h *Handler) handleOrderCreated(e order.OrderCreated) error {
	if e.CustomerEmail == "" {
		log.Printf("[Notifier] Order %s has no customer email, skipping", e.OrderID)
		return nil
	}

	log.Printf("[Notifier] Sending confirmation for order %s to %s", e.OrderID, e.CustomerEmail)

	items := make([]email.OrderItem, len(e.Items))
	for i, item := range e.Items {
		price, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			price = decimal.Zero
		}
		items[i] = email.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: price,
		}
	}

	total, err := decimal.NewFromString(e.Total)
	if err != nil {
		total = decimal.Zero
	}

	if err := h.sender.SendOrderConfirmation(e.CustomerEmail, e.OrderID, total, items); err != nil {
		log.Printf("[Notifier] Failed to send email to %s: %v", e.CustomerEmail, err)
		return err
	}

	log.Printf("[Notifier] Order confirmation email sent for order %s", e.OrderID)
	return nil
}
