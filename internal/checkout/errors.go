package checkout

import "errors"

// Error taxonomy for webhook processing. Terminal errors mean redelivering
// the same event cannot succeed; the endpoint acknowledges them so the
// provider stops retrying, and flags them for operator follow-up. Anything
// else is treated as transient and surfaced as a retryable failure.
var (
	// ErrAuthentication covers a missing, invalid or expired signature,
	// and an unconfigured secret. The raw body is never parsed before
	// authentication succeeds.
	ErrAuthentication = errors.New("webhook authentication failed")

	// ErrMalformedPayload covers unparsable event JSON and a missing or
	// corrupt cart snapshot in the session metadata. The order is not
	// recoverable from the event alone.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrInsufficientStock means a line's quantity exceeds available
	// stock at fulfillment time. The whole transaction rolls back; manual
	// resolution (refund or backorder) is required.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrEmptyCart means the initiator was asked to build a session with
	// no items.
	ErrEmptyCart = errors.New("cart is empty")
)

// IsTerminal reports whether err is unrecoverable for this delivery, as
// opposed to a transient store failure worth a provider redelivery.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrAuthentication) ||
		errors.Is(err, ErrMalformedPayload) ||
		errors.Is(err, ErrInsufficientStock)
}
