package handlers

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ridedispatch/internal/booking"
	"ridedispatch/internal/core"
	"ridedispatch/internal/external"
	"ridedispatch/internal/types"
)

// RequestValidator validates request DTOs against their struct tags.
// Satisfied by *core.Validator.
type RequestValidator interface {
	ValidateStruct(dst interface{}) error
}

// CreateCheckoutRequest is the request body for POST /v1/checkout/sessions.
// All booking fields are collected on the booking site form and must be
// present; they are carried through the payment provider as session metadata
// and come back on the completion event.
//
// DriverKey is optional: multi-driver deployments send the directory short
// code; single-driver deployments omit it and the configured driver is used.
type CreateCheckoutRequest struct {
	CustomerName   string  `json:"customerName" validate:"required"`
	CustomerPhone  string  `json:"customerPhone" validate:"required"`
	PickupAddress  string  `json:"pickupAddress" validate:"required"`
	DropoffAddress string  `json:"dropoffAddress" validate:"required"`
	Date           string  `json:"date" validate:"required"`
	Time           string  `json:"time" validate:"required"`
	Vehicle        string  `json:"vehicle" validate:"required"`
	Price          float64 `json:"price" validate:"required"`
	DriverKey      string  `json:"driverKey,omitempty" validate:"omitempty"`
}

// CheckoutSessionResponse is the response for POST /v1/checkout/sessions.
// The frontend redirects the customer to URL to complete payment.
type CheckoutSessionResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

// CheckoutHandler creates payment provider checkout sessions for ride
// bookings.
type CheckoutHandler struct {
	service       external.CheckoutService
	directory     *booking.DriverDirectory
	defaultDriver types.DriverIdentity
	validator     RequestValidator
	logger        *slog.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler with the provided
// dependencies. defaultDriver is the configured recipient used when the
// request carries no driverKey.
func NewCheckoutHandler(
	service external.CheckoutService,
	directory *booking.DriverDirectory,
	defaultDriver types.DriverIdentity,
	validator RequestValidator,
	logger *slog.Logger,
) *CheckoutHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutHandler{
		service:       service,
		directory:     directory,
		defaultDriver: defaultDriver,
		validator:     validator,
		logger:        logger,
	}
}

// RegisterRoutes mounts the checkout endpoint.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Post("/checkout/sessions", h.HandleCreate)
}

// HandleCreate processes POST /v1/checkout/sessions.
//
// The price arrives in euros and is converted to cents for the provider;
// all booking fields travel in the session's metadata bag so the completion
// webhook can reconstruct the booking without any server-side state.
func (h *CheckoutHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateCheckoutRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		core.Error(w, r, err)
		return
	}

	if req.Price <= 0 || math.IsNaN(req.Price) || math.IsInf(req.Price, 0) {
		core.Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidPrice,
			"price must be a positive amount in euros",
			nil,
			map[string]any{"field": "price"},
		))
		return
	}

	driver, err := h.resolveDriver(req.DriverKey)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	b := types.Booking{
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		PickupAddress:  req.PickupAddress,
		DropoffAddress: req.DropoffAddress,
		Date:           req.Date,
		Time:           req.Time,
		Vehicle:        req.Vehicle,
		Price:          strconv.FormatFloat(req.Price, 'f', -1, 64),
	}

	params := external.CheckoutParams{
		AmountCents: int64(math.Round(req.Price * 100)),
		Metadata:    booking.MetadataForCheckout(b, driver, req.DriverKey),
	}

	url, sessionID, err := h.service.CreateCheckoutSession(r.Context(), params)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create checkout session",
			"error", err,
		)
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "checkout session created",
		"session_id", sessionID,
		"amount_cents", params.AmountCents,
	)

	core.JSON(w, r, http.StatusOK, CheckoutSessionResponse{
		URL:       url,
		SessionID: sessionID,
	})
}

// resolveDriver picks the notification recipient recorded on the session.
// A driverKey is looked up in the directory; without one the configured
// default driver is used, failing with a config error if no default email
// is set.
func (h *CheckoutHandler) resolveDriver(driverKey string) (types.DriverIdentity, error) {
	if driverKey != "" {
		driver, err := h.directory.Resolve(map[string]string{"driverKey": driverKey})
		if err != nil {
			// At checkout time an unknown key is bad client input, not a
			// broken event.
			return types.DriverIdentity{}, types.NewAppErrorWithDetails(
				types.ErrCodeValidationInvalidField,
				"unknown driverKey",
				err,
				map[string]any{"field": "driverKey"},
			)
		}
		return driver, nil
	}

	if h.defaultDriver.Email == "" {
		return types.DriverIdentity{}, types.NewAppError(
			types.ErrCodeConfigMissingSetting,
			"DRIVER_EMAIL is not configured and request carries no driverKey",
			nil,
		)
	}
	return h.defaultDriver, nil
}
