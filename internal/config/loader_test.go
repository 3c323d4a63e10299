package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setValidEnv populates every setting LoadConfig requires. Individual tests
// override or blank out entries to exercise failure paths. t.Setenv restores
// the previous values automatically.
func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "dev")
	t.Setenv("PORT", "9090")
	t.Setenv("FRONT_URL", "https://booking.example.com")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_456")
	t.Setenv("EMAIL_PROVIDER", "brevo")
	t.Setenv("BREVO_API_KEY", "xkeysib-789")
	t.Setenv("MAIL_SENDER", "noreply@example.com")
	t.Setenv("MAIL_SENDER_NAME", "Example Rides")
	t.Setenv("EMAIL_FORMAT", "rich")
	t.Setenv("DRIVER_NAME", "A. Bruno")
	t.Setenv("DRIVER_EMAIL", "a.bruno@example.com")
	t.Setenv("DRIVER_DIRECTORY_JSON", "")
	t.Setenv("SES_CONFIG_SET", "")
	t.Setenv("AWS_REGION", "eu-west-3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SERVICE_NAME", "ridedispatch")
}

func TestLoadConfig_FullEnvironment(t *testing.T) {
	setValidEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "https://booking.example.com", cfg.Server.FrontURL)
	assert.Equal(t, "sk_test_123", cfg.Billing.StripeSecretKey.Unmask())
	assert.Equal(t, "whsec_456", cfg.Billing.StripeWebhookSecret.Unmask())
	assert.Equal(t, "brevo", cfg.Email.Provider)
	assert.Equal(t, "noreply@example.com", cfg.Email.SenderAddress)
	assert.Equal(t, "Example Rides", cfg.Email.SenderName)
	assert.Equal(t, "a.bruno@example.com", cfg.Driver.Email)
}

func TestLoadConfig_Defaults(t *testing.T) {
	setValidEnv(t)
	t.Setenv("APP_ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("EMAIL_PROVIDER", "")
	t.Setenv("EMAIL_FORMAT", "")
	t.Setenv("MAIL_SENDER_NAME", "")
	t.Setenv("DRIVER_NAME", "")
	t.Setenv("AWS_REGION", "")
	t.Setenv("SERVICE_NAME", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "brevo", cfg.Email.Provider)
	assert.Equal(t, "rich", string(cfg.Email.Format))
	assert.Equal(t, "RideDispatch", cfg.Email.SenderName)
	assert.Equal(t, "Driver", cfg.Driver.Name)
	assert.Equal(t, "eu-west-3", cfg.AWS.Region)
	assert.Equal(t, "ridedispatch", cfg.Service)
}

func TestLoadConfig_MissingFrontURL(t *testing.T) {
	setValidEnv(t)
	t.Setenv("FRONT_URL", "")

	_, err := LoadConfig()
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrValidation, cfgErr.Type)
}

func TestLoadConfig_MalformedFrontURL(t *testing.T) {
	setValidEnv(t)
	t.Setenv("FRONT_URL", "not a url")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_MissingStripeSecrets(t *testing.T) {
	for _, key := range []string{"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET"} {
		t.Run(key, func(t *testing.T) {
			setValidEnv(t)
			t.Setenv(key, "")

			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestLoadConfig_BrevoProviderRequiresKey(t *testing.T) {
	setValidEnv(t)
	t.Setenv("BREVO_API_KEY", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_SESProviderSkipsBrevoKey(t *testing.T) {
	setValidEnv(t)
	t.Setenv("EMAIL_PROVIDER", "ses")
	t.Setenv("BREVO_API_KEY", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "ses", cfg.Email.Provider)
}

func TestLoadConfig_RejectsUnknownProvider(t *testing.T) {
	setValidEnv(t)
	t.Setenv("EMAIL_PROVIDER", "sendgrid")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_RejectsUnknownFormat(t *testing.T) {
	setValidEnv(t)
	t.Setenv("EMAIL_FORMAT", "markdown")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_RejectsInvalidSenderAddress(t *testing.T) {
	setValidEnv(t)
	t.Setenv("MAIL_SENDER", "not-an-email")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestConfigError_Formatting(t *testing.T) {
	inner := errors.New("boom")
	err := &ConfigError{Type: ErrParsing, Message: "failed to parse", Err: inner}

	assert.Contains(t, err.Error(), "PARSING_FAILED")
	assert.Contains(t, err.Error(), "boom")
	assert.ErrorIs(t, err, inner)
}

func TestSecretsRedactedInStringForm(t *testing.T) {
	setValidEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.NotContains(t, cfg.Billing.StripeSecretKey.String(), "sk_test_123")
	assert.NotContains(t, cfg.Email.BrevoAPIKey.String(), "xkeysib-789")
}
