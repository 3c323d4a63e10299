package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ridedispatch/internal/types"
)

// brevoAPIBase is the default Brevo API base URL.
// Overridable in tests via BrevoClientConfig.BaseURL.
const brevoAPIBase = "https://api.brevo.com"

// BrevoClientConfig holds the configuration for creating a BrevoClient.
type BrevoClientConfig struct {
	APIKey  types.SecretString
	BaseURL string // Override for testing; defaults to brevoAPIBase
	Logger  *slog.Logger
}

// BrevoClient implements EmailProvider by making direct HTTP calls to the
// Brevo v3 transactional email API through BaseClient. The client is built
// with NoRetryPolicy: dispatch is attempted at most once per invocation, and
// redelivery is left to the payment provider's webhook retry contract.
type BrevoClient struct {
	base    *BaseClient
	apiKey  types.SecretString
	baseURL string
	logger  *slog.Logger
}

// NewBrevoClient creates a new BrevoClient.
func NewBrevoClient(httpClient *http.Client, cfg BrevoClientConfig) *BrevoClient {
	base := NewBaseClient(
		httpClient,
		"brevo",
		NoRetryPolicy(),
		"RideDispatch/1.0",
		WithSleepFunc(time.Sleep),
	)
	return NewBrevoClientWithBase(base, cfg)
}

// NewBrevoClientWithBase creates a BrevoClient with a pre-configured
// BaseClient. This is useful for testing when you want to control the
// BaseClient configuration.
func NewBrevoClientWithBase(base *BaseClient, cfg BrevoClientConfig) *BrevoClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = brevoAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &BrevoClient{
		base:    base,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// Send transmits the notification using Brevo's v3 smtp/email endpoint and
// returns the provider message ID on success. Missing credentials or sender
// address fail with config_missing_setting before any network call.
//
// Error mapping:
//   - 4xx -> upstream_email_provider (the send request was rejected)
//   - 429 -> upstream_rate_limited (via BaseClient)
//   - 5xx -> upstream_unavailable (via BaseClient)
func (b *BrevoClient) Send(ctx context.Context, n *types.Notification) (string, error) {
	if b.apiKey.Unmask() == "" {
		return "", types.NewAppError(
			types.ErrCodeConfigMissingSetting,
			"BREVO_API_KEY is not configured",
			nil,
		)
	}
	if n.From.Address == "" {
		return "", types.NewAppError(
			types.ErrCodeConfigMissingSetting,
			"MAIL_SENDER is not configured",
			nil,
		)
	}

	payload := brevoSendPayload{
		Sender:  brevoAddress{Email: n.From.Address, Name: n.From.Name},
		To:      []brevoAddress{{Email: n.To, Name: n.ToName}},
		Subject: n.Subject,
	}
	switch n.Format {
	case types.BodyFormatPlain:
		payload.TextContent = n.BodyText
	default:
		payload.HTMLContent = n.BodyHTML
	}
	if n.ReferenceID != "" {
		payload.Headers = map[string]string{"X-Reference-Id": n.ReferenceID}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to marshal Brevo send payload",
			err,
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v3/smtp/email", bytes.NewReader(body))
	if err != nil {
		return "", types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to create Brevo send request",
			err,
		)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", b.apiKey.Unmask())

	resp, err := b.base.Do(req)
	if err != nil {
		return "", b.wrapBrevoError("Send", err)
	}
	defer resp.Body.Close()

	// Brevo returns 201 Created with a messageId on success.
	if resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusAccepted {
		var ack brevoSendResponse
		if decErr := json.NewDecoder(resp.Body).Decode(&ack); decErr != nil {
			// The message was accepted; a missing ID is not a delivery failure.
			return "", nil
		}
		return ack.MessageID, nil
	}

	return "", b.handleErrorResponse(resp, "Send")
}

// brevoSendPayload represents the Brevo v3 smtp/email JSON request body.
type brevoSendPayload struct {
	Sender      brevoAddress      `json:"sender"`
	To          []brevoAddress    `json:"to"`
	Subject     string            `json:"subject"`
	HTMLContent string            `json:"htmlContent,omitempty"`
	TextContent string            `json:"textContent,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

type brevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoSendResponse struct {
	MessageID string `json:"messageId"`
}

// brevoErrorResponse represents the JSON error body returned by Brevo.
type brevoErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleErrorResponse reads a Brevo error response and maps it to a
// types.AppError.
func (b *BrevoClient) handleErrorResponse(resp *http.Response, operation string) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamEmailProvider,
			fmt.Sprintf("%s: Brevo returned status %d and response body was unreadable", operation, resp.StatusCode),
			readErr,
		)
	}

	errMsg := string(body)
	var brevoErr brevoErrorResponse
	if jsonErr := json.Unmarshal(body, &brevoErr); jsonErr == nil && brevoErr.Message != "" {
		errMsg = brevoErr.Message
	}

	return types.NewAppError(
		types.ErrCodeUpstreamEmailProvider,
		fmt.Sprintf("%s: Brevo error (%d): %s", operation, resp.StatusCode, errMsg),
		nil,
	)
}

// wrapBrevoError wraps a BaseClient transport error with context.
func (b *BrevoClient) wrapBrevoError(operation string, err error) error {
	if _, ok := err.(*types.AppError); ok {
		return err
	}
	return types.NewAppError(
		types.ErrCodeUpstreamEmailProvider,
		fmt.Sprintf("%s: Brevo request failed: %v", operation, err),
		err,
	)
}

// Compile-time assertion that BrevoClient satisfies EmailProvider.
var _ EmailProvider = (*BrevoClient)(nil)
