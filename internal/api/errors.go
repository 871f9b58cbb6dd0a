package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/guidelinehq/guideline-api/internal/domain"
	"github.com/guidelinehq/guideline-api/internal/service"
	"github.com/guidelinehq/guideline-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, store.ErrJobNotFound):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, domain.ErrEmptyGuidelineText),
		errors.Is(err, domain.ErrGuidelineTextTooLong),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, store.ErrJobNotFound):
		return "Job not found"

	case errors.Is(err, domain.ErrEmptyGuidelineText):
		return "guideline_text must not be empty"

	case errors.Is(err, domain.ErrGuidelineTextTooLong):
		return fmt.Sprintf("guideline_text must not exceed %d characters", domain.MaxGuidelineTextLength)

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid job data"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example format: "Key: 'SubmitGuidelineRequest.GuidelineText'
		// Error:Field validation for 'GuidelineText' failed on the 'max' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
