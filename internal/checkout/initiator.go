package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/example/artisan-shop/internal/catalog"
	"github.com/example/artisan-shop/internal/payment"
	"github.com/example/artisan-shop/internal/shipping"
)

// Catalog is the product lookup the initiator needs.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
}

// ShippingMethods resolves the method the customer picked.
type ShippingMethods interface {
	Get(ctx context.Context, id string) (*shipping.Method, error)
}

// SessionClient creates hosted checkout sessions.
type SessionClient interface {
	CreateCheckoutSession(ctx context.Context, req payment.CreateSessionRequest) (*payment.CheckoutSession, error)
}

// InitiatorConfig groups dependencies for the checkout-session initiator.
type InitiatorConfig struct {
	Catalog    Catalog
	Shipping   ShippingMethods
	Client     SessionClient
	Currency   string
	SuccessURL string
	CancelURL  string
}

// Initiator builds a payment session from a cart and a chosen shipping
// method, and stashes the cart snapshot as opaque metadata on the session
// so the webhook reconciler can materialize the order later.
type Initiator struct {
	cfg InitiatorConfig
}

func NewInitiator(cfg InitiatorConfig) *Initiator {
	return &Initiator{cfg: cfg}
}

// CreateSession resolves the cart against the catalog, prices each line
// in minor units, appends the shipping line and creates the provider
// session. Returns the session for the client redirect.
func (i *Initiator) CreateSession(ctx context.Context, items []payment.CartItem, shippingMethodID string) (*payment.CheckoutSession, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	lineItems := make([]payment.SessionLineItem, 0, len(items)+1)
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("invalid quantity %d for product %s", item.Quantity, item.ProductID)
		}
		p, err := i.cfg.Catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve product %s: %w", item.ProductID, err)
		}
		lineItems = append(lineItems, payment.SessionLineItem{
			Name:        p.Name,
			Description: truncate(p.Description, 200),
			ImageURL:    p.ImageURL,
			UnitAmount:  minorUnits(p.Price),
			Quantity:    item.Quantity,
		})
	}

	if shippingMethodID != "" {
		m, err := i.cfg.Shipping.Get(ctx, shippingMethodID)
		if err != nil {
			return nil, fmt.Errorf("resolve shipping method %s: %w", shippingMethodID, err)
		}
		lineItems = append(lineItems, payment.SessionLineItem{
			Name:        "Livraison - " + m.Name,
			Description: m.Description,
			UnitAmount:  minorUnits(m.Price),
			Quantity:    1,
		})
	}

	snapshot, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}

	session, err := i.cfg.Client.CreateCheckoutSession(ctx, payment.CreateSessionRequest{
		Currency:   i.cfg.Currency,
		LineItems:  lineItems,
		SuccessURL: i.cfg.SuccessURL,
		CancelURL:  i.cfg.CancelURL,
		Metadata: map[string]string{
			payment.MetadataItems:          string(snapshot),
			payment.MetadataShippingMethod: shippingMethodID,
		},
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Checkout] Session %s created (%d lines)", session.ID, len(lineItems))
	return session, nil
}

// minorUnits converts a decimal amount to the currency's minor unit.
func minorUnits(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
