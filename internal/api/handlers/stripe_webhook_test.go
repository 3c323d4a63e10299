package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridedispatch/internal/booking"
	"ridedispatch/internal/notifications/email"
	"ridedispatch/internal/types"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockVerifier struct {
	err        error
	lastHeader string
	lastSecret string
}

func (m *mockVerifier) Verify(payload []byte, header string, secret string) error {
	m.lastHeader = header
	m.lastSecret = secret
	return m.err
}

type mockProvider struct {
	err       error
	callCount int
	lastSent  *types.Notification
}

func (m *mockProvider) Send(ctx context.Context, n *types.Notification) (string, error) {
	m.callCount++
	m.lastSent = n
	if m.err != nil {
		return "", m.err
	}
	return "provider-msg-1", nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func testComposer(t *testing.T) *email.Composer {
	t.Helper()
	c, err := email.NewComposer(email.ComposerConfig{
		Format:        types.BodyFormatRich,
		SenderAddress: "noreply@example.com",
		SenderName:    "RideDispatch",
	})
	require.NoError(t, err)
	return c
}

func newWebhookHandler(t *testing.T, verifier *mockVerifier, provider *mockProvider) *StripeWebhookHandler {
	t.Helper()
	directory, err := booking.NewDriverDirectory(`{"nice": {"name": "A. Bruno", "email": "a.bruno@example.com"}}`)
	require.NoError(t, err)

	return NewStripeWebhookHandler(
		verifier,
		directory,
		testComposer(t),
		provider,
		"whsec_test",
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func completedEventPayload(t *testing.T, metadata map[string]string) []byte {
	t.Helper()
	event := map[string]interface{}{
		"id":      "evt_123",
		"type":    "checkout.session.completed",
		"created": 1772400000,
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":       "cs_test_abc",
				"metadata": metadata,
			},
		},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return payload
}

func fullMetadata() map[string]string {
	return map[string]string{
		"customerName":   "Jean Dupont",
		"customerPhone":  "0612345678",
		"pickupAddress":  "12 Promenade des Anglais, Nice",
		"dropoffAddress": "Aéroport Nice Côte d'Azur",
		"date":           "2026-09-14",
		"time":           "14:30",
		"vehicle":        "Berline",
		"price":          "85",
		"driverName":     "A. Bruno",
		"driverEmail":    "a.bruno@example.com",
	}
}

func postWebhook(handler *StripeWebhookHandler, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", strings.NewReader(string(payload)))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)
	return rec
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestWebhook_MissingSignature(t *testing.T) {
	verifier := &mockVerifier{}
	provider := &mockProvider{}
	handler := newWebhookHandler(t, verifier, provider)

	rec := postWebhook(handler, completedEventPayload(t, fullMetadata()), "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(types.ErrCodeAuthSignatureMissing), decodeErrorCode(t, rec))
	assert.Zero(t, provider.callCount, "no dispatch on rejected request")
}

func TestWebhook_InvalidSignature(t *testing.T) {
	verifier := &mockVerifier{err: errors.New("signature mismatch")}
	provider := &mockProvider{}
	handler := newWebhookHandler(t, verifier, provider)

	rec := postWebhook(handler, completedEventPayload(t, fullMetadata()), "t=1,v1=bad")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(types.ErrCodeAuthSignatureInvalid), decodeErrorCode(t, rec))
	assert.Zero(t, provider.callCount, "no payload field may be interpreted before verification")
}

func TestWebhook_SignatureCheckedWithConfiguredSecret(t *testing.T) {
	verifier := &mockVerifier{}
	provider := &mockProvider{}
	handler := newWebhookHandler(t, verifier, provider)

	postWebhook(handler, completedEventPayload(t, fullMetadata()), "t=1,v1=sig")

	assert.Equal(t, "t=1,v1=sig", verifier.lastHeader)
	assert.Equal(t, "whsec_test", verifier.lastSecret)
}

func TestWebhook_IgnoredEventType(t *testing.T) {
	verifier := &mockVerifier{}
	provider := &mockProvider{}
	handler := newWebhookHandler(t, verifier, provider)

	payload := []byte(`{"id":"evt_456","type":"checkout.session.expired","data":{"object":{}}}`)
	rec := postWebhook(handler, payload, "t=1,v1=sig")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ignored"`)
	assert.Zero(t, provider.callCount, "non-completion events never trigger a dispatch")
}

func TestWebhook_MalformedJSON(t *testing.T) {
	verifier := &mockVerifier{}
	provider := &mockProvider{}
	handler := newWebhookHandler(t, verifier, provider)

	rec := postWebhook(handler, []byte(`{not json`), "t=1,v1=sig")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, provider.callCount)
}

func TestWebhook_IncompleteMetadata(t *testing.T) {
	verifier := &mockVerifier{}
	provider := &mockProvider{}
	handler := newWebhookHandler(t, verifier, provider)

	md := fullMetadata()
	delete(md, "pickupAddress")
	rec := postWebhook(handler, completedEventPayload(t, md), "t=1,v1=sig")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(types.ErrCodeEventMetadataIncomplete), decodeErrorCode(t, rec))
	assert.Zero(t, provider.callCount, "partial bookings are never dispatched")
}

func TestWebhook_MissingDriverEmail(t *testing.T) {
	verifier := &mockVerifier{}
	provider := &mockProvider{}
	handler := newWebhookHandler(t, verifier, provider)

	md := fullMetadata()
	delete(md, "driverEmail")
	rec := postWebhook(handler, completedEventPayload(t, md), "t=1,v1=sig")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(types.ErrCodeEventDriverEmailMissing), decodeErrorCode(t, rec))
	assert.Zero(t, provider.callCount)
}

func TestWebhook_UnknownDriverKey(t *testing.T) {
	verifier := &mockVerifier{}
	provider := &mockProvider{}
	handler := newWebhookHandler(t, verifier, provider)

	md := fullMetadata()
	md["driverKey"] = "marseille"
	rec := postWebhook(handler, completedEventPayload(t, md), "t=1,v1=sig")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(types.ErrCodeEventUnknownDriver), decodeErrorCode(t, rec))
	assert.Zero(t, provider.callCount)
}

func TestWebhook_DriverKeyResolution(t *testing.T) {
	verifier := &mockVerifier{}
	provider := &mockProvider{}
	handler := newWebhookHandler(t, verifier, provider)

	md := fullMetadata()
	md["driverKey"] = "nice"
	delete(md, "driverEmail")
	delete(md, "driverName")
	rec := postWebhook(handler, completedEventPayload(t, md), "t=1,v1=sig")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, provider.lastSent)
	assert.Equal(t, "a.bruno@example.com", provider.lastSent.To)
	assert.Equal(t, "A. Bruno", provider.lastSent.ToName)
}

func TestWebhook_SuccessfulDispatch(t *testing.T) {
	verifier := &mockVerifier{}
	provider := &mockProvider{}
	handler := newWebhookHandler(t, verifier, provider)

	rec := postWebhook(handler, completedEventPayload(t, fullMetadata()), "t=1,v1=sig")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"dispatched"`)
	assert.Equal(t, 1, provider.callCount, "exactly one dispatch per completion event")

	n := provider.lastSent
	require.NotNil(t, n)
	assert.Equal(t, "a.bruno@example.com", n.To)
	assert.Equal(t, "noreply@example.com", n.From.Address)
	assert.Equal(t, "New ride paid ✅", n.Subject)
	assert.Contains(t, n.BodyHTML, "Jean Dupont")
	assert.Contains(t, n.BodyHTML, "tel:+33612345678")
	assert.NotEmpty(t, n.ReferenceID)
}

func TestWebhook_ProviderFailureSurfacesAs502(t *testing.T) {
	verifier := &mockVerifier{}
	provider := &mockProvider{
		err: types.NewAppError(types.ErrCodeUpstreamEmailProvider, "brevo rejected", nil),
	}
	handler := newWebhookHandler(t, verifier, provider)

	rec := postWebhook(handler, completedEventPayload(t, fullMetadata()), "t=1,v1=sig")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, string(types.ErrCodeUpstreamEmailProvider), decodeErrorCode(t, rec))
	assert.Equal(t, 1, provider.callCount, "dispatch attempted exactly once, no handler-level retry")
}

func TestWebhook_OversizedPayloadRejected(t *testing.T) {
	verifier := &mockVerifier{}
	provider := &mockProvider{}
	handler := newWebhookHandler(t, verifier, provider)

	big := make([]byte, maxWebhookBodySize+1)
	for i := range big {
		big[i] = 'a'
	}
	rec := postWebhook(handler, big, "t=1,v1=sig")

	assert.NotEqual(t, http.StatusOK, rec.Code)
	assert.Zero(t, provider.callCount)
}

func TestWebhook_ResponseEnvelopeShape(t *testing.T) {
	verifier := &mockVerifier{err: fmt.Errorf("bad")}
	provider := &mockProvider{}
	handler := newWebhookHandler(t, verifier, provider)

	rec := postWebhook(handler, completedEventPayload(t, fullMetadata()), "t=1,v1=x")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	errObj, ok := body["error"].(map[string]interface{})
	require.True(t, ok, "error envelope expected")
	assert.NotEmpty(t, errObj["code"])
	assert.NotEmpty(t, errObj["message"])
}
