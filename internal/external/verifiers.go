package external

import (
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeVerifier implements WebhookVerifier using stripe-go's webhook
// signature validation: HMAC-SHA256 over the raw body bytes with timestamp
// tolerance. The payload is authenticated before any trust is extended to
// its content; the verifier never inspects the claimed event fields.
type StripeVerifier struct{}

// Verify validates a Stripe webhook payload against the Stripe-Signature
// header value and the webhook signing secret. The payload must be the exact
// raw request bytes; any re-serialization breaks the signature.
func (v *StripeVerifier) Verify(payload []byte, header string, secret string) error {
	return webhook.ValidatePayload(payload, header, secret)
}

// Compile-time assertion that StripeVerifier satisfies WebhookVerifier.
var _ WebhookVerifier = (*StripeVerifier)(nil)
