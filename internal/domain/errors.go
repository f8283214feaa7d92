package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is the machine-checkable category of a failure.
type ErrorCode string

const (
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidation       ErrorCode = "VALIDATION"
	CodeInsufficientData ErrorCode = "INSUFFICIENT_DATA"
	CodeNoValidMethods   ErrorCode = "NO_VALID_METHODS"
	CodeCalculation      ErrorCode = "CALCULATION"
	CodeInternal         ErrorCode = "INTERNAL"
)

// CodedError is implemented by every structured error the system reports to callers.
type CodedError interface {
	error
	Code() ErrorCode
	ErrorType() string
	Details() map[string]any
}

// AsCoded finds the first CodedError in err's chain.
func AsCoded(err error) (CodedError, bool) {
	var coded CodedError
	if errors.As(err, &coded) {
		return coded, true
	}
	return nil, false
}

// CodeOf returns the code of the first CodedError in err's chain, CodeInternal otherwise.
func CodeOf(err error) ErrorCode {
	if coded, ok := AsCoded(err); ok {
		return coded.Code()
	}
	return CodeInternal
}

// Details returns the structured details of the first CodedError in err's chain,
// or an empty map.
func Details(err error) map[string]any {
	if coded, ok := AsCoded(err); ok {
		if details := coded.Details(); details != nil {
			return details
		}
	}
	return map[string]any{}
}

// NotFoundError is returned when a referenced company, sector or index does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Code() ErrorCode   { return CodeNotFound }
func (e *NotFoundError) ErrorType() string { return "DataNotFoundError" }

func (e *NotFoundError) Details() map[string]any {
	return map[string]any{
		"resource_type": e.Resource,
		"resource_id":   e.ID,
	}
}

// FieldError is one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field of an input that failed validation.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(parts, "; "))
}

func (e *ValidationError) Code() ErrorCode   { return CodeValidation }
func (e *ValidationError) ErrorType() string { return "DataValidationError" }

func (e *ValidationError) Details() map[string]any {
	fields := e.Fields
	if fields == nil {
		fields = []FieldError{}
	}
	return map[string]any{"validation_errors": fields}
}

// InsufficientDataError is returned when data exists but cannot support a calculation,
// e.g. a sector with fewer comparables than required.
type InsufficientDataError struct {
	Subject       string
	Reason        string
	MissingFields []string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: %s", e.Subject, e.Reason)
}

func (e *InsufficientDataError) Code() ErrorCode   { return CodeInsufficientData }
func (e *InsufficientDataError) ErrorType() string { return "InsufficientDataError" }

func (e *InsufficientDataError) Details() map[string]any {
	missing := e.MissingFields
	if missing == nil {
		missing = []string{}
	}
	return map[string]any{
		"subject":      e.Subject,
		"reason":       e.Reason,
		"missing_data": missing,
	}
}

// CalculationError is a numeric or logic fault inside one method's execution.
type CalculationError struct {
	Method string
	Step   string
	Reason string
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("calculation failed in %s at step '%s': %s", e.Method, e.Step, e.Reason)
}

func (e *CalculationError) Code() ErrorCode   { return CodeCalculation }
func (e *CalculationError) ErrorType() string { return "CalculationError" }

func (e *CalculationError) Details() map[string]any {
	return map[string]any{
		"method": e.Method,
		"step":   e.Step,
		"reason": e.Reason,
	}
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsInsufficientData reports whether err is or wraps an InsufficientDataError.
func IsInsufficientData(err error) bool {
	var ide *InsufficientDataError
	return errors.As(err, &ide)
}

// ErrorInfo is the structured form of an error reported to callers.
type ErrorInfo struct {
	Details   map[string]any `json:"details"`
	ErrorType string         `json:"error_type"`
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
}

// NewErrorInfo converts err, using its CodedError form when it has one.
func NewErrorInfo(err error) *ErrorInfo {
	if coded, ok := AsCoded(err); ok {
		return &ErrorInfo{
			ErrorType: coded.ErrorType(),
			Code:      coded.Code(),
			Message:   coded.Error(),
			Details:   Details(coded),
		}
	}
	return &ErrorInfo{
		ErrorType: "InternalError",
		Code:      CodeInternal,
		Message:   err.Error(),
		Details:   map[string]any{},
	}
}
