package external

import (
	"context"

	"ridedispatch/internal/types"
)

// ---------------------------------------------------------------------------
// Payment Integration (Stripe)
// ---------------------------------------------------------------------------

// CheckoutService abstracts checkout-session creation with the payment
// provider. Implementations translate between the booking request and the
// vendor-specific session API.
type CheckoutService interface {
	// CreateCheckoutSession creates a payment-mode checkout session carrying
	// the full booking as the session's metadata bag and returns the hosted
	// payment page URL plus the session ID.
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (checkoutURL string, sessionID string, err error)
}

// CheckoutParams is the input to CreateCheckoutSession. Metadata carries the
// booking fields end-to-end without separate storage: the provider echoes it
// back on the completion event.
type CheckoutParams struct {
	// AmountCents is the ride price in integer minor units (euro cents).
	AmountCents int64
	Metadata    map[string]string
}

// WebhookVerifier abstracts webhook signature checking. Verify must operate
// on the exact raw body bytes as received, never a re-serialized form.
type WebhookVerifier interface {
	// Verify validates a webhook payload against the provided signature
	// header and signing secret. Returns nil on success, an error on failure.
	Verify(payload []byte, header string, secret string) error
}

// Stripe event type constants prevent magic strings in webhook handlers.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

// ---------------------------------------------------------------------------
// Email Integration (Brevo / AWS SES)
// ---------------------------------------------------------------------------

// EmailProvider abstracts the transactional email service. Implementations
// transmit a pre-composed notification and return the provider's message ID;
// nothing beyond "accepted for delivery" is guaranteed.
type EmailProvider interface {
	// Send transmits the notification. It must fail with
	// config_missing_setting before attempting the network call when the
	// provider credentials or sender address are absent.
	Send(ctx context.Context, n *types.Notification) (providerMsgID string, err error)
}
