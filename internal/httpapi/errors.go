// Package httpapi maps domain errors onto HTTP responses.
package httpapi

import (
	"net/http"

	"github.com/aristath/vcaudit/internal/domain"
)

// StatusFor returns the HTTP status for err's code.
func StatusFor(err error) int {
	switch domain.CodeOf(err) {
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeInsufficientData, domain.CodeNoValidMethods:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// BadRequest wraps a malformed request body or parameter as a validation error.
func BadRequest(field, message string) error {
	return &domain.ValidationError{
		Message: "invalid request",
		Fields:  []domain.FieldError{{Field: field, Message: message}},
	}
}
