package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/example/artisan-shop/internal/catalog"
	"github.com/example/artisan-shop/internal/checkout"
	"github.com/example/artisan-shop/internal/payment"
	"github.com/example/artisan-shop/internal/shipping"
)

// maxWebhookBody caps how much of a delivery we are willing to read.
const maxWebhookBody = 1 << 20

// CheckoutHandlers owns the two halves of the payment flow: creating the
// hosted session the storefront redirects to, and reconciling the signed
// completion webhook into an order.
type CheckoutHandlers struct {
	initiator  *checkout.Initiator
	reconciler *checkout.Reconciler
}

func NewCheckoutHandlers(initiator *checkout.Initiator, reconciler *checkout.Reconciler) *CheckoutHandlers {
	return &CheckoutHandlers{initiator: initiator, reconciler: reconciler}
}

type CreateSessionRequest struct {
	Items            []payment.CartItem `json:"items"`
	ShippingMethodID string             `json:"shippingMethodId,omitempty"`
}

type CreateSessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url,omitempty"`
}

func (h *CheckoutHandlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	session, err := h.initiator.CreateSession(r.Context(), req.Items, req.ShippingMethodID)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			respondJSONError(w, "cart is empty", http.StatusBadRequest)
		case errors.Is(err, catalog.ErrProductNotFound):
			respondJSONError(w, "unknown product in cart", http.StatusBadRequest)
		case errors.Is(err, shipping.ErrMethodNotFound):
			respondJSONError(w, "unknown shipping method", http.StatusBadRequest)
		default:
			log.Printf("[API] Error creating checkout session: %v", err)
			respondJSONError(w, "failed to create checkout session", http.StatusBadGateway)
		}
		return
	}

	respondJSON(w, http.StatusOK, CreateSessionResponse{SessionID: session.ID, URL: session.URL})
}

// HandleWebhook receives signed deliveries from the payment provider. The
// response status steers the provider's retry behavior: 2xx stops
// redelivery, anything else invites it. Terminal failures are acknowledged
// so a doomed event is not redelivered forever.
func (h *CheckoutHandlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	// The signature is computed over the exact bytes sent; read them
	// before any parsing.
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		respondJSONError(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	result, err := h.reconciler.HandleEvent(r.Context(), body, r.Header.Get(payment.SignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrAuthentication):
			log.Printf("[Webhook] Rejected delivery: %v", err)
			respondJSONError(w, "invalid signature", http.StatusBadRequest)
		case errors.Is(err, checkout.ErrInsufficientStock):
			// Acknowledged: redelivery cannot conjure stock. The order was
			// rolled back in full and needs an operator (refund or
			// restock).
			log.Printf("[Webhook] ALERT paid session could not be fulfilled, manual resolution required: %v", err)
			respondJSON(w, http.StatusOK, map[string]bool{"received": true})
		case checkout.IsTerminal(err):
			// Malformed payload: acknowledged so the provider stops
			// retrying a delivery that can never parse.
			log.Printf("[Webhook] ALERT unprocessable delivery dropped: %v", err)
			respondJSON(w, http.StatusOK, map[string]bool{"received": true})
		default:
			// Transient (store unavailable, timeout). A non-2xx asks the
			// provider to redeliver; the idempotency guard makes the retry
			// safe.
			log.Printf("[Webhook] Transient failure, requesting redelivery: %v", err)
			respondJSONError(w, "temporary failure", http.StatusServiceUnavailable)
		}
		return
	}

	if result.Outcome == checkout.OutcomeDuplicate {
		log.Printf("[Webhook] Duplicate delivery acknowledged")
	}
	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}
