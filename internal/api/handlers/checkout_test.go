package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridedispatch/internal/booking"
	"ridedispatch/internal/core"
	"ridedispatch/internal/external"
	"ridedispatch/internal/types"
)

// ---------------------------------------------------------------------------
// Mock CheckoutService
// ---------------------------------------------------------------------------

type mockCheckoutService struct {
	err        error
	callCount  int
	lastParams external.CheckoutParams
}

func (m *mockCheckoutService) CreateCheckoutSession(ctx context.Context, p external.CheckoutParams) (string, string, error) {
	m.callCount++
	m.lastParams = p
	if m.err != nil {
		return "", "", m.err
	}
	return "https://checkout.stripe.com/c/pay/cs_test_abc", "cs_test_abc", nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newCheckoutHandler(t *testing.T, service *mockCheckoutService, defaultDriver types.DriverIdentity) *CheckoutHandler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	directory, err := booking.NewDriverDirectory(`{"nice": {"name": "A. Bruno", "email": "a.bruno@example.com"}}`)
	require.NoError(t, err)

	return NewCheckoutHandler(service, directory, defaultDriver, core.NewValidator(logger), logger)
}

func validCheckoutBody() map[string]interface{} {
	return map[string]interface{}{
		"customerName":   "Jean Dupont",
		"customerPhone":  "0612345678",
		"pickupAddress":  "12 Promenade des Anglais, Nice",
		"dropoffAddress": "Aéroport Nice Côte d'Azur",
		"date":           "2026-09-14",
		"time":           "14:30",
		"vehicle":        "Berline",
		"price":          85.5,
	}
}

func postCheckout(t *testing.T, handler *CheckoutHandler, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/checkout/sessions", strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.HandleCreate(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestCheckout_Success(t *testing.T) {
	service := &mockCheckoutService{}
	handler := newCheckoutHandler(t, service, types.DriverIdentity{Name: "Driver", Email: "driver@example.com"})

	rec := postCheckout(t, handler, validCheckoutBody())

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp CheckoutSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_abc", resp.URL)
	assert.Equal(t, "cs_test_abc", resp.SessionID)

	require.Equal(t, 1, service.callCount)
	assert.Equal(t, int64(8550), service.lastParams.AmountCents, "85.50 EUR is 8550 cents")

	md := service.lastParams.Metadata
	assert.Equal(t, "Jean Dupont", md["customerName"])
	assert.Equal(t, "85.5", md["price"])
	assert.Equal(t, "driver@example.com", md["driverEmail"])
	assert.Equal(t, "Driver", md["driverName"])
	assert.NotContains(t, md, "driverKey")
}

func TestCheckout_EachFieldRequired(t *testing.T) {
	fields := []string{
		"customerName", "customerPhone", "pickupAddress",
		"dropoffAddress", "date", "time", "vehicle", "price",
	}
	for _, field := range fields {
		t.Run(field, func(t *testing.T) {
			service := &mockCheckoutService{}
			handler := newCheckoutHandler(t, service, types.DriverIdentity{Email: "driver@example.com"})

			body := validCheckoutBody()
			delete(body, field)
			rec := postCheckout(t, handler, body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, service.callCount, "invalid input must not reach the provider")
		})
	}
}

func TestCheckout_NegativePriceRejected(t *testing.T) {
	service := &mockCheckoutService{}
	handler := newCheckoutHandler(t, service, types.DriverIdentity{Email: "driver@example.com"})

	body := validCheckoutBody()
	body["price"] = -10
	rec := postCheckout(t, handler, body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(types.ErrCodeValidationInvalidPrice), decodeErrorCode(t, rec))
	assert.Zero(t, service.callCount)
}

func TestCheckout_NonNumericPriceRejected(t *testing.T) {
	service := &mockCheckoutService{}
	handler := newCheckoutHandler(t, service, types.DriverIdentity{Email: "driver@example.com"})

	body := validCheckoutBody()
	body["price"] = "85"
	rec := postCheckout(t, handler, body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, service.callCount)
}

func TestCheckout_MalformedJSON(t *testing.T) {
	service := &mockCheckoutService{}
	handler := newCheckoutHandler(t, service, types.DriverIdentity{Email: "driver@example.com"})

	req := httptest.NewRequest(http.MethodPost, "/v1/checkout/sessions", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.HandleCreate(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, service.callCount)
}

func TestCheckout_DriverKeySelectsDirectoryEntry(t *testing.T) {
	service := &mockCheckoutService{}
	handler := newCheckoutHandler(t, service, types.DriverIdentity{Email: "driver@example.com"})

	body := validCheckoutBody()
	body["driverKey"] = "nice"
	rec := postCheckout(t, handler, body)

	assert.Equal(t, http.StatusOK, rec.Code)
	md := service.lastParams.Metadata
	assert.Equal(t, "a.bruno@example.com", md["driverEmail"])
	assert.Equal(t, "A. Bruno", md["driverName"])
	assert.Equal(t, "nice", md["driverKey"])
}

func TestCheckout_UnknownDriverKeyIs400(t *testing.T) {
	service := &mockCheckoutService{}
	handler := newCheckoutHandler(t, service, types.DriverIdentity{Email: "driver@example.com"})

	body := validCheckoutBody()
	body["driverKey"] = "marseille"
	rec := postCheckout(t, handler, body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, service.callCount)
}

func TestCheckout_NoDefaultDriverIs500(t *testing.T) {
	service := &mockCheckoutService{}
	handler := newCheckoutHandler(t, service, types.DriverIdentity{})

	rec := postCheckout(t, handler, validCheckoutBody())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(types.ErrCodeConfigMissingSetting), decodeErrorCode(t, rec))
	assert.Zero(t, service.callCount)
}

func TestCheckout_ProviderFailurePropagates(t *testing.T) {
	service := &mockCheckoutService{
		err: types.NewAppError(types.ErrCodeUpstreamStripe, "stripe rejected", nil),
	}
	handler := newCheckoutHandler(t, service, types.DriverIdentity{Email: "driver@example.com"})

	rec := postCheckout(t, handler, validCheckoutBody())

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, string(types.ErrCodeUpstreamStripe), decodeErrorCode(t, rec))
}
