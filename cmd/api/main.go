// Package main is the entry point for the ride dispatch API server.
//
// It initializes the configuration, wires the payment and email provider
// clients, builds the HTTP server with the core chassis (middleware, routing,
// health checks), and starts listening for requests.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/go-chi/chi/v5"

	"ridedispatch/internal/api/handlers"
	"ridedispatch/internal/booking"
	"ridedispatch/internal/config"
	"ridedispatch/internal/core"
	"ridedispatch/internal/external"
	"ridedispatch/internal/notifications/email"
	"ridedispatch/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("ridedispatch API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"email_provider", cfg.Email.Provider,
	)

	directory, err := booking.NewDriverDirectory(cfg.Driver.DirectoryJSON)
	if err != nil {
		return fmt.Errorf("loading driver directory: %w", err)
	}
	if directory.Len() > 0 {
		logger.Info("driver directory loaded", "entries", directory.Len())
	}

	composer, err := email.NewComposer(email.ComposerConfig{
		Format:        cfg.Email.Format,
		SenderAddress: cfg.Email.SenderAddress,
		SenderName:    cfg.Email.SenderName,
	})
	if err != nil {
		return fmt.Errorf("building composer: %w", err)
	}

	provider, err := newEmailProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("building email provider: %w", err)
	}

	httpClient := &http.Client{Timeout: 20 * time.Second}
	stripeClient := external.NewStripeClient(httpClient, external.StripeClientConfig{
		SecretKey: cfg.Billing.StripeSecretKey,
		FrontURL:  cfg.Server.FrontURL,
		Logger:    logger,
	})

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	defaultDriver := types.DriverIdentity{
		Name:  cfg.Driver.Name,
		Email: cfg.Driver.Email,
	}

	checkoutHandler := handlers.NewCheckoutHandler(
		stripeClient,
		directory,
		defaultDriver,
		srv.Validator,
		logger,
	)
	webhookHandler := handlers.NewStripeWebhookHandler(
		&external.StripeVerifier{},
		directory,
		composer,
		provider,
		cfg.Billing.StripeWebhookSecret.Unmask(),
		logger,
	)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		func(r chi.Router) { checkoutHandler.RegisterRoutes(r) },
		func(r chi.Router) { webhookHandler.RegisterRoutes(r) },
	)

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// newEmailProvider selects the dispatch adapter from configuration.
func newEmailProvider(cfg *config.Config, logger *slog.Logger) (external.EmailProvider, error) {
	switch cfg.Email.Provider {
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.AWS.Region),
		)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		return external.NewSESClient(awsCfg, external.SESClientConfig{
			ConfigSetName: cfg.Email.SESConfigSet,
			Logger:        logger,
		}), nil

	default:
		httpClient := &http.Client{Timeout: 15 * time.Second}
		return external.NewBrevoClient(httpClient, external.BrevoClientConfig{
			APIKey: cfg.Email.BrevoAPIKey,
			Logger: logger,
		}), nil
	}
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel to capture server errors from ListenAndServe.
	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or server error.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with a 10-second deadline.
	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
