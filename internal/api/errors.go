package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/service"
	"github.com/mwhitlock/tasktrack-api/internal/service/auth"
	"github.com/mwhitlock/tasktrack-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types or messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized

	// Not found errors
	case store.IsNotFoundError(err):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, service.ErrIdempotencyMismatch),
		store.IsDuplicateError(err):
		return http.StatusConflict

	// Domain rule violations and bad input
	case errors.Is(err, domain.ErrTaskHasOpenStage),
		errors.Is(err, domain.ErrActualHoursRequired),
		errors.Is(err, domain.ErrUnknownState),
		errors.Is(err, domain.ErrEmptyTaskName),
		errors.Is(err, domain.ErrInvalidPriority),
		errors.Is(err, domain.ErrZeroDueDate),
		errors.Is(err, domain.ErrEmptyStageName),
		errors.Is(err, domain.ErrNonPositiveEstimate),
		errors.Is(err, domain.ErrNonPositiveActualHours),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-facing message for the
// error. Raw error strings never reach the client.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid credentials"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrStageNotFound):
		return "Stage not found"

	case errors.Is(err, store.ErrTemplateNotFound):
		return "Template not found"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case store.IsNotFoundError(err):
		return "Not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case errors.Is(err, store.ErrUsernameExists):
		return "Username already exists"

	case errors.Is(err, service.ErrIdempotencyMismatch),
		store.IsDuplicateError(err):
		return "Conflicting request"

	case errors.Is(err, domain.ErrTaskHasOpenStage):
		return "Cannot mark task as completed while stages are still open"

	case errors.Is(err, domain.ErrActualHoursRequired):
		return "Actual hours are required to complete a stage"

	case errors.Is(err, domain.ErrUnknownState):
		return "Unknown state"

	case errors.Is(err, domain.ErrEmptyTaskName),
		errors.Is(err, domain.ErrInvalidPriority),
		errors.Is(err, domain.ErrZeroDueDate):
		return "Invalid task data"

	case errors.Is(err, domain.ErrEmptyStageName),
		errors.Is(err, domain.ErrNonPositiveEstimate),
		errors.Is(err, domain.ErrNonPositiveActualHours):
		return "Invalid stage data"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns a validator error into a user-friendly
// message, keeping field internals out of the response.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example format: "Key: 'CreateTaskRequest.Name' Error:Field
	// validation for 'Name' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
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
					return fmt.Sprintf("Invalid %s: %s", field, validationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "gt":
		return "must be greater than zero"
	default:
		return "validation failed"
	}
}
