package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/artisan-shop/internal/catalog"
	"github.com/example/artisan-shop/internal/order"
	"github.com/example/artisan-shop/internal/payment"
	"github.com/example/artisan-shop/internal/shipping"
)

// ProviderName identifies the payment provider in the webhook ledger.
const ProviderName = "hosted-checkout"

// Store is the subset of the order store the reconciler needs. All
// mutations happen inside one WithinTx call so a failure partway through
// leaves no partial order visible.
type Store interface {
	FindBySessionID(ctx context.Context, sessionID string) (*order.Order, error)
	WithinTx(ctx context.Context, fn func(tx order.Tx) error) error
}

// Ledger records processed webhook deliveries for dedup and forensics.
type Ledger interface {
	SeenWebhookEvent(ctx context.Context, provider, eventID string) (bool, error)
	RecordWebhookEvent(ctx context.Context, provider, eventID, eventType string, payload []byte, processingErr string) error
}

// Publisher emits domain events after a successful commit.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Outcome int

const (
	// OutcomeIgnored: a recognized or unknown event kind this flow does
	// not persist. Acknowledged as a deliberate no-op.
	OutcomeIgnored Outcome = iota
	// OutcomeDuplicate: an order already exists for the session. The
	// redelivery is a successful no-op, never an error.
	OutcomeDuplicate
	// OutcomeOrderCreated: exactly one order was committed.
	OutcomeOrderCreated
)

type Result struct {
	Outcome Outcome
	Order   *order.Order
}

// ReconcilerConfig groups dependencies for the webhook reconciler.
// Ledger and Publisher are optional.
type ReconcilerConfig struct {
	Store         Store
	Ledger        Ledger
	Publisher     Publisher
	WebhookSecret string
	Tolerance     time.Duration
}

// Reconciler converts one signed "checkout session completed" delivery
// into exactly one persisted order with correctly priced line items and
// decremented stock.
type Reconciler struct {
	store     Store
	ledger    Ledger
	publisher Publisher
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	tolerance := cfg.Tolerance
	if tolerance == 0 {
		tolerance = payment.DefaultTolerance
	}
	return &Reconciler{
		store:     cfg.Store,
		ledger:    cfg.Ledger,
		publisher: cfg.Publisher,
		secret:    cfg.WebhookSecret,
		tolerance: tolerance,
		now:       time.Now,
	}
}

// HandleEvent processes one raw webhook delivery. body must be the exact
// byte sequence the provider sent; the signature is computed over it.
func (r *Reconciler) HandleEvent(ctx context.Context, body []byte, signature string) (Result, error) {
	// Authenticate before anything else. A forged payload must never be
	// parsed.
	if err := payment.VerifySignature(body, signature, r.secret, r.tolerance, r.now()); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	var event payment.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	switch event.Type {
	case payment.EventCheckoutSessionCompleted:
		return r.reconcile(ctx, event, body)
	case payment.EventPaymentSucceeded, payment.EventPaymentFailed:
		// Payment lifecycle notifications are not this flow's concern.
		log.Printf("[Checkout] Ignoring %s event %s", event.Type, event.ID)
		return Result{Outcome: OutcomeIgnored}, nil
	default:
		// Unknown kinds are acknowledged for forward compatibility.
		log.Printf("[Checkout] Unhandled event kind %q (%s)", event.Type, event.ID)
		return Result{Outcome: OutcomeIgnored}, nil
	}
}

func (r *Reconciler) reconcile(ctx context.Context, event payment.Event, body []byte) (Result, error) {
	var session payment.CheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return Result{}, fmt.Errorf("%w: bad session object: %v", ErrMalformedPayload, err)
	}
	if session.ID == "" {
		return Result{}, fmt.Errorf("%w: session id missing", ErrMalformedPayload)
	}

	// Fast-path dedup on the provider's event id. Best effort: a ledger
	// failure never blocks order creation, the session-id guard below is
	// the real idempotency contract.
	if r.ledger != nil && event.ID != "" {
		if seen, err := r.ledger.SeenWebhookEvent(ctx, ProviderName, event.ID); err != nil {
			log.Printf("[Checkout] Ledger lookup failed for event %s: %v", event.ID, err)
		} else if seen {
			log.Printf("[Checkout] Event %s already recorded, skipping", event.ID)
			return Result{Outcome: OutcomeDuplicate}, nil
		}
	}

	// Idempotency guard: providers redeliver on transient failures, and a
	// naive re-run would double-create the order and double-decrement
	// stock.
	if existing, err := r.store.FindBySessionID(ctx, session.ID); err == nil {
		log.Printf("[Checkout] Order %s already exists for session %s", existing.ID, session.ID)
		return Result{Outcome: OutcomeDuplicate, Order: existing}, nil
	} else if !errors.Is(err, order.ErrOrderNotFound) {
		return Result{}, err
	}

	items, shippingMethodID, err := parseCartSnapshot(session.Metadata)
	if err != nil {
		r.record(ctx, event, body, err)
		return Result{}, err
	}

	o := buildOrder(session)
	created, productNames, err := r.createOrder(ctx, o, items, shippingMethodID)
	if errors.Is(err, order.ErrDuplicateSession) {
		// Lost a race with a concurrent delivery of the same session; the
		// unique constraint makes that a no-op, not a failure.
		log.Printf("[Checkout] Concurrent delivery for session %s, order already committed", session.ID)
		return Result{Outcome: OutcomeDuplicate}, nil
	}
	if err != nil {
		if IsTerminal(err) {
			r.record(ctx, event, body, err)
		}
		return Result{}, err
	}

	r.record(ctx, event, body, nil)
	r.publish(ctx, created, productNames)

	log.Printf("[Checkout] Order %s created for session %s (%d items, total %s)",
		created.ID, session.ID, len(created.Items), created.Total)
	return Result{Outcome: OutcomeOrderCreated, Order: created}, nil
}

// createOrder runs steps 5-8 in one transaction: order row, line items,
// conditional stock decrements, then the authoritative price backfill.
func (r *Reconciler) createOrder(ctx context.Context, o *order.Order, items []payment.CartItem, shippingMethodID string) (*order.Order, map[string]string, error) {
	productNames := make(map[string]string)

	err := r.store.WithinTx(ctx, func(tx order.Tx) error {
		// The method chosen at initiation may have been deleted since;
		// that must not block order creation.
		if shippingMethodID != "" {
			switch m, err := tx.FindShippingMethod(ctx, shippingMethodID); {
			case err == nil:
				o.ShippingMethodID = &m.ID
			case errors.Is(err, shipping.ErrMethodNotFound):
				log.Printf("[Checkout] Shipping method %s no longer exists, order %s keeps a null reference", shippingMethodID, o.ProviderSessionID)
			default:
				return err
			}
		}

		if err := tx.CreateOrder(ctx, o); err != nil {
			return err
		}

		// Prices come from the catalog, never from client-supplied cart
		// data; line items start at zero and get backfilled below.
		for _, item := range items {
			li, err := tx.CreateLineItem(ctx, o.ID, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			o.Items = append(o.Items, *li)
		}

		for _, item := range items {
			ok, err := tx.DecrementStockIfSufficient(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: product %s, requested %d", ErrInsufficientStock, item.ProductID, item.Quantity)
			}
		}

		for i := range o.Items {
			p, err := tx.FindProduct(ctx, o.Items[i].ProductID)
			if err != nil {
				if errors.Is(err, catalog.ErrProductNotFound) {
					return fmt.Errorf("%w: unknown product %s", ErrMalformedPayload, o.Items[i].ProductID)
				}
				return err
			}
			if err := tx.UpdateLineItemPrice(ctx, o.Items[i].ID, p.Price); err != nil {
				return err
			}
			o.Items[i].UnitPrice = p.Price
			productNames[p.ID] = p.Name
		}
		return nil
	})
	if err != nil {
		// Nothing committed; drop the in-memory items too.
		o.Items = nil
		return nil, nil, err
	}
	return o, productNames, nil
}

// parseCartSnapshot extracts the cart from session metadata. The snapshot
// is load-bearing: without it the order cannot be reconstructed from this
// event.
func parseCartSnapshot(metadata map[string]string) ([]payment.CartItem, string, error) {
	if metadata == nil {
		return nil, "", fmt.Errorf("%w: session has no metadata", ErrMalformedPayload)
	}
	itemsJSON, ok := metadata[payment.MetadataItems]
	if !ok || itemsJSON == "" {
		return nil, "", fmt.Errorf("%w: cart snapshot missing from metadata", ErrMalformedPayload)
	}

	var items []payment.CartItem
	if err := json.Unmarshal([]byte(itemsJSON), &items); err != nil {
		return nil, "", fmt.Errorf("%w: corrupt cart snapshot: %v", ErrMalformedPayload, err)
	}
	if len(items) == 0 {
		return nil, "", fmt.Errorf("%w: cart snapshot is empty", ErrMalformedPayload)
	}
	for _, item := range items {
		if item.ProductID == "" || item.Quantity <= 0 {
			return nil, "", fmt.Errorf("%w: invalid cart entry %+v", ErrMalformedPayload, item)
		}
	}
	return items, metadata[payment.MetadataShippingMethod], nil
}

func buildOrder(session payment.CheckoutSession) *order.Order {
	o := &order.Order{
		ProviderSessionID: session.ID,
		Status:            order.StatusPaid,
		// The provider's own record of the amount charged, in minor
		// units.
		Total: decimal.New(session.AmountTotal, -2),
	}
	if d := session.CustomerDetails; d != nil {
		o.CustomerName = d.Name
		o.CustomerEmail = d.Email
		if a := d.Address; a != nil {
			o.ShippingAddress = order.Address{
				Line1:      a.Line1,
				Line2:      a.Line2,
				City:       a.City,
				PostalCode: a.PostalCode,
				Country:    a.Country,
			}
		}
	}
	return o
}

// record writes the delivery to the ledger. Best effort.
func (r *Reconciler) record(ctx context.Context, event payment.Event, body []byte, procErr error) {
	if r.ledger == nil || event.ID == "" {
		return
	}
	msg := ""
	if procErr != nil {
		msg = procErr.Error()
	}
	if err := r.ledger.RecordWebhookEvent(ctx, ProviderName, event.ID, event.Type, body, msg); err != nil {
		log.Printf("[Checkout] Failed to record event %s in ledger: %v", event.ID, err)
	}
}

// publish emits order.created after commit. Best effort: the order is
// durable either way.
func (r *Reconciler) publish(ctx context.Context, o *order.Order, productNames map[string]string) {
	if r.publisher == nil {
		return
	}

	items := make([]order.OrderCreatedItem, len(o.Items))
	for i, li := range o.Items {
		items[i] = order.OrderCreatedItem{
			ProductID: li.ProductID,
			Name:      productNames[li.ProductID],
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice.StringFixed(2),
		}
	}

	event := order.Event{
		Type:       order.EventOrderCreated,
		OrderID:    o.ID,
		OccurredAt: r.now(),
		Data: order.OrderCreated{
			OrderID:           o.ID,
			ProviderSessionID: o.ProviderSessionID,
			CustomerName:      o.CustomerName,
			CustomerEmail:     o.CustomerEmail,
			Total:             o.Total.StringFixed(2),
			Items:             items,
		},
	}
	if err := r.publisher.Publish(ctx, o.ID, event); err != nil {
		log.Printf("[Checkout] Failed to publish %s for order %s: %v", order.EventOrderCreated, o.ID, err)
	}
}
