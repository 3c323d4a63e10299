package external

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"
)

// signStripePayload builds a valid Stripe-Signature header over the payload,
// matching the scheme Stripe uses: HMAC-SHA256 over "<timestamp>.<payload>".
func signStripePayload(t *testing.T, payload []byte, secret string, ts time.Time) string {
	t.Helper()

	signedPayload := fmt.Sprintf("%d.%s", ts.Unix(), payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	signature := hex.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), signature)
}

func TestStripeVerifier_ValidSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_123","type":"checkout.session.completed"}`)
	secret := "whsec_test_secret"
	header := signStripePayload(t, payload, secret, time.Now())

	verifier := &StripeVerifier{}
	if err := verifier.Verify(payload, header, secret); err != nil {
		t.Errorf("expected valid signature, got %v", err)
	}
}

func TestStripeVerifier_TamperedPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_123","type":"checkout.session.completed"}`)
	secret := "whsec_test_secret"
	header := signStripePayload(t, payload, secret, time.Now())

	tampered := []byte(`{"id":"evt_999","type":"checkout.session.completed"}`)

	verifier := &StripeVerifier{}
	if err := verifier.Verify(tampered, header, secret); err == nil {
		t.Error("expected error for tampered payload")
	}
}

func TestStripeVerifier_WrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_123"}`)
	header := signStripePayload(t, payload, "whsec_other", time.Now())

	verifier := &StripeVerifier{}
	if err := verifier.Verify(payload, header, "whsec_test_secret"); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestStripeVerifier_StaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_123"}`)
	secret := "whsec_test_secret"
	// Stripe's default tolerance is 5 minutes; an hour-old signature must fail.
	header := signStripePayload(t, payload, secret, time.Now().Add(-time.Hour))

	verifier := &StripeVerifier{}
	if err := verifier.Verify(payload, header, secret); err == nil {
		t.Error("expected error for stale timestamp")
	}
}

func TestStripeVerifier_MalformedHeader(t *testing.T) {
	verifier := &StripeVerifier{}
	for _, header := range []string{"", "garbage", "t=,v1=", "t=abc,v1=def"} {
		if err := verifier.Verify([]byte(`{}`), header, "whsec_test_secret"); err == nil {
			t.Errorf("expected error for malformed header %q", header)
		}
	}
}
