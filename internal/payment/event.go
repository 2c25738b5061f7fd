package payment

import "encoding/json"

// Event kinds delivered to the webhook endpoint. The provider may add new
// kinds at any time; anything unrecognized must be acknowledged, not
// rejected.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventPaymentSucceeded         = "payment_intent.succeeded"
	EventPaymentFailed            = "payment_intent.payment_failed"
)

// Metadata keys the checkout-session initiator stashes on the session.
const (
	MetadataItems          = "items"
	MetadataShippingMethod = "shippingMethodId"
)

// Event is the signed envelope the provider posts to the webhook endpoint.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

type EventData struct {
	Object json.RawMessage `json:"object"`
}

// CheckoutSession is the provider's record of a hosted checkout.
// AmountTotal is in the currency's minor unit and is the authoritative
// amount charged; it is never recomputed from client-supplied cart data.
type CheckoutSession struct {
	ID              string            `json:"id"`
	URL             string            `json:"url,omitempty"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	CustomerDetails *CustomerDetails  `json:"customer_details,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

type CustomerDetails struct {
	Name    string   `json:"name,omitempty"`
	Email   string   `json:"email,omitempty"`
	Address *Address `json:"address,omitempty"`
}

type Address struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// CartItem is one entry of the cart snapshot serialized into session
// metadata at initiation time. It is the only channel carrying what was
// ordered across the asynchronous gap to the webhook.
type CartItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}
