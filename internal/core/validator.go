package core

import (
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"ridedispatch/internal/types"
)

// Validator wraps go-playground/validator for request DTO validation.
// Field-level failures are translated into the domain validation error codes
// so handlers can return them to clients unchanged.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a new Validator.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	return &Validator{
		validate: v,
		logger:   logger,
	}
}

// ValidateStruct validates dst against its struct tags. The first failing
// field determines the returned error:
//   - "required" failures map to validation_missing_field
//   - anything else maps to validation_invalid_field
//
// The failing field name (lowercased JSON-style) is carried in Details.
func (v *Validator) ValidateStruct(dst interface{}) error {
	err := v.validate.Struct(dst)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrs) == 0 {
		return types.NewAppError(
			types.ErrCodeValidationInvalidField,
			"request validation failed",
			err,
		)
	}

	first := validationErrs[0]
	field := strings.ToLower(first.Field())

	if first.Tag() == "required" {
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationMissingField,
			"missing required field: "+field,
			err,
			map[string]any{"field": field},
		)
	}

	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationInvalidField,
		"invalid value for field: "+field,
		err,
		map[string]any{"field": field, "rule": first.Tag()},
	)
}
