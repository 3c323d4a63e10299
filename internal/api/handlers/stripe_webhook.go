// Package handlers contains the HTTP handler implementations for the ride
// dispatch API.
//
// The webhook handler is NOT behind auth middleware -- it is called directly
// by Stripe. Security is provided by verifying the Stripe-Signature header
// using HMAC-SHA256.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ridedispatch/internal/booking"
	"ridedispatch/internal/core"
	"ridedispatch/internal/external"
	"ridedispatch/internal/notifications/email"
	"ridedispatch/internal/types"
)

// maxWebhookBodySize is the maximum allowed size of a Stripe webhook payload
// (64 KB). Checkout completion payloads are small; this limit protects
// against abuse.
const maxWebhookBodySize = 64 * 1024

// NotificationComposer renders a driver notification from a booking and
// recipient. Satisfied by *email.Composer; extracted for testability.
type NotificationComposer interface {
	Compose(b types.Booking, driver types.DriverIdentity) (*types.Notification, error)
}

// StripeWebhookHandler processes payment completion events from Stripe and
// dispatches the driver notification email synchronously, within the webhook
// request. A failed dispatch is reported upstream with a 5xx status so the
// payment provider's retry schedule redelivers the event.
type StripeWebhookHandler struct {
	verifier  external.WebhookVerifier
	directory *booking.DriverDirectory
	composer  NotificationComposer
	provider  external.EmailProvider
	secret    string
	logger    *slog.Logger
}

// NewStripeWebhookHandler creates a new StripeWebhookHandler with the
// provided dependencies.
func NewStripeWebhookHandler(
	verifier external.WebhookVerifier,
	directory *booking.DriverDirectory,
	composer NotificationComposer,
	provider external.EmailProvider,
	secret string,
	logger *slog.Logger,
) *StripeWebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StripeWebhookHandler{
		verifier:  verifier,
		directory: directory,
		composer:  composer,
		provider:  provider,
		secret:    secret,
		logger:    logger,
	}
}

// RegisterRoutes mounts the Stripe webhook endpoint.
// Webhook routes are public (no auth middleware); the signature check is the
// authentication.
func (h *StripeWebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/stripe", h.Handle)
}

// webhookAck is the success body returned to the payment provider.
type webhookAck struct {
	Status      string `json:"status"`
	ReferenceID string `json:"reference_id,omitempty"`
}

// Handle processes incoming Stripe webhook events.
//
//  1. Reads the body and the "Stripe-Signature" header.
//  2. Verifies the signature using the webhook signing secret; failures are
//     rejected before any payload field is interpreted.
//  3. Parses the event JSON.
//  4. Non-completion event types are acknowledged with 200 and ignored.
//  5. Reconstructs the booking and recipient from session metadata; failures
//     surface as 500 so the provider redelivers once the config is fixed.
//  6. Composes and dispatches the driver email exactly once; provider
//     failures surface as 502.
func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.WarnContext(r.Context(), "failed to read webhook body",
			"error", err,
		)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidField,
			"failed to read request body",
			err,
		))
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if sigHeader == "" {
		h.logger.WarnContext(r.Context(), "missing Stripe-Signature header")
		core.Error(w, r, types.NewAppError(
			types.ErrCodeAuthSignatureMissing,
			"missing Stripe-Signature header",
			nil,
		))
		return
	}

	if err := h.verifier.Verify(payload, sigHeader, h.secret); err != nil {
		h.logger.WarnContext(r.Context(), "webhook signature verification failed",
			"error", err,
		)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeAuthSignatureInvalid,
			"webhook signature verification failed",
			err,
		))
		return
	}

	var event stripeWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to parse webhook event JSON",
			"error", err,
		)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidField,
			"invalid webhook event JSON",
			err,
		))
		return
	}

	h.logger.InfoContext(r.Context(), "processing stripe webhook event",
		"event_id", event.ID,
		"event_type", event.Type,
	)

	if event.Type != external.EventCheckoutCompleted {
		h.logger.InfoContext(r.Context(), "ignoring unhandled webhook event type",
			"event_id", event.ID,
			"event_type", event.Type,
		)
		core.JSON(w, r, http.StatusOK, webhookAck{Status: "ignored"})
		return
	}

	refID, err := h.handleCheckoutCompleted(r.Context(), &event)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "webhook event processing failed",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err,
		)
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, webhookAck{Status: "dispatched", ReferenceID: refID})
}

// handleCheckoutCompleted reconstructs the booking from session metadata,
// resolves the recipient, renders the notification, and dispatches it.
// Returns the notification reference ID on success.
func (h *StripeWebhookHandler) handleCheckoutCompleted(ctx context.Context, event *stripeWebhookEvent) (string, error) {
	md := event.sessionMetadata()

	b, err := booking.BookingFromMetadata(md)
	if err != nil {
		return "", err
	}

	driver, err := h.directory.Resolve(md)
	if err != nil {
		return "", err
	}

	n, err := h.composer.Compose(b, driver)
	if err != nil {
		return "", err
	}

	msgID, err := h.provider.Send(ctx, n)
	if err != nil {
		return "", err
	}

	h.logger.InfoContext(ctx, "driver notification dispatched",
		"event_id", event.ID,
		"recipient", email.RedactEmail(n.To),
		"reference_id", n.ReferenceID,
		"provider_message_id", msgID,
	)

	return n.ReferenceID, nil
}

// ---------------------------------------------------------------------------
// Stripe Event Parsing
// ---------------------------------------------------------------------------

// stripeWebhookEvent is a minimal representation of a Stripe webhook event
// tailored to extract the fields needed for routing and processing.
// We avoid importing the full stripe.Event type to keep the handler
// decoupled from the stripe-go library and to make testing straightforward.
type stripeWebhookEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    json.RawMessage `json:"data"`
}

// stripeEventData wraps the event data object.
type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

// stripeCheckoutSessionObj represents the minimal fields from a checkout
// session event's data object.
type stripeCheckoutSessionObj struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

// sessionMetadata extracts the metadata bag from a checkout session event.
// Returns an empty (non-nil) map when the payload carries none, so callers
// see missing keys rather than a nil map.
func (e *stripeWebhookEvent) sessionMetadata() map[string]string {
	var data stripeEventData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return map[string]string{}
	}

	var session stripeCheckoutSessionObj
	if err := json.Unmarshal(data.Object, &session); err != nil {
		return map[string]string{}
	}

	if session.Metadata == nil {
		return map[string]string{}
	}
	return session.Metadata
}
