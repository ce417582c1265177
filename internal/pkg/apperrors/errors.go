package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")

	ErrTransport = errors.New("transport failure")

	ErrDecode = errors.New("malformed response body")

	ErrNotFound = errors.New("resource not found")

	ErrInvalidArgument = errors.New("invalid argument")

	ErrLoanFullyPaid = errors.New("loan is already fully paid")

	ErrPaymentInFlight = errors.New("payment already in progress for this loan")

	ErrInternal = errors.New("internal error")
)

// ServiceError carries the reason reported by the ledger service on a
// non-success HTTP status.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ledger service error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ledger service error (status %d)", e.StatusCode)
}

func NewServiceError(statusCode int, message string) error {
	return &ServiceError{StatusCode: statusCode, Message: message}
}

type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func NewValidationError(field, message string) error {
	return fmt.Errorf("%w: %w", ErrValidation, &ValidationError{Field: field, Message: message})
}

func WrapTransportError(cause error, message string) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, message, cause)
}

func WrapDecodeError(cause error, message string) error {
	return fmt.Errorf("%w: %s: %w", ErrDecode, message, cause)
}
