// Package config defines the global configuration structure for the
// RideDispatch service. Configuration is loaded once at process
// initialization and is immutable thereafter. It follows 12-Factor App
// principles by strictly separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format causes the application to
// fail immediately on startup.
package config

import (
	"ridedispatch/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the RideDispatch service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"ridedispatch"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server  ServerConfig
	Billing BillingConfig
	Email   EmailConfig
	Driver  DriverConfig
	AWS     AWSConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server and public URL configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// FrontURL is the public base URL of the booking front end
	// (no trailing slash); checkout success/cancel redirects derive from it.
	FrontURL string `envconfig:"FRONT_URL" validate:"required,url"`
}

// BillingConfig holds Stripe payment integration credentials.
type BillingConfig struct {
	StripeSecretKey     SecretString `envconfig:"STRIPE_SECRET_KEY" validate:"required"`
	StripeWebhookSecret SecretString `envconfig:"STRIPE_WEBHOOK_SECRET" validate:"required"`
}

// EmailConfig holds email delivery provider credentials and rendering options.
type EmailConfig struct {
	// Provider selects the dispatch adapter: "brevo" (transactional email
	// API) or "ses" (AWS SES v2, IAM-authenticated).
	Provider string `envconfig:"EMAIL_PROVIDER" default:"brevo" validate:"oneof=brevo ses"`
	// BrevoAPIKey is required when Provider is "brevo".
	BrevoAPIKey   SecretString     `envconfig:"BREVO_API_KEY" validate:"required_if=Provider brevo"`
	SenderAddress string           `envconfig:"MAIL_SENDER" validate:"required,email"`
	SenderName    string           `envconfig:"MAIL_SENDER_NAME" default:"RideDispatch"`
	Format        types.BodyFormat `envconfig:"EMAIL_FORMAT" default:"rich" validate:"oneof=rich plain"`
	// SESConfigSet is the optional SES configuration set name for tracking.
	SESConfigSet string `envconfig:"SES_CONFIG_SET"`
}

// DriverConfig holds the recipient identity configuration. Either a single
// static driver (Name/Email) or a directory of drivers keyed by a short code
// (DirectoryJSON) must be provided; both may coexist, with the directory
// consulted only when an event carries a driverKey.
type DriverConfig struct {
	Name  string `envconfig:"DRIVER_NAME" default:"Driver"`
	Email string `envconfig:"DRIVER_EMAIL"`
	// DirectoryJSON is a JSON mapping of short codes to driver identities:
	// {"nice": {"name": "A. Bruno", "email": "a.bruno@example.com"}}
	DirectoryJSON string `envconfig:"DRIVER_DIRECTORY_JSON"`
}

// AWSConfig holds regional configuration for the SES email provider.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"eu-west-3"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
