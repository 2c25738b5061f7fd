package order

import "time"

// Kafka event types
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// Event is the envelope published to Kafka for every order lifecycle change.
type Event struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"order_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data,omitempty"`
}

// OrderCreated is emitted after the reconciler commits a new order.
// Monetary amounts are decimal strings.
type OrderCreated struct {
	OrderID           string             `json:"order_id"`
	ProviderSessionID string             `json:"provider_session_id"`
	CustomerName      string             `json:"customer_name"`
	CustomerEmail     string             `json:"customer_email"`
	Total             string             `json:"total"`
	Items             []OrderCreatedItem `json:"items"`
}

type OrderCreatedItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// OrderStatusChanged is emitted when an operator moves an order through
// its lifecycle in the back office.
type OrderStatusChanged struct {
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}
