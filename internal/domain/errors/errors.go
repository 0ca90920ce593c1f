package errors

import (
	"errors"
	"fmt"
)

// ConnectionMessage is the user-facing text for provider connectivity failures.
const ConnectionMessage = "Could not establish the connection to Summit."

var (
	// Provider errors
	ErrConnection              = errors.New("provider connection failed")
	ErrProtocol                = errors.New("malformed provider response")
	ErrInvalidProviderResponse = errors.New("invalid provider response")

	// Transaction errors
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAmbiguousReference  = errors.New("multiple transactions share the reference")
	ErrMissingReference    = errors.New("missing reference")
	ErrDuplicateReference  = errors.New("duplicate transaction reference")
	ErrCatalogItemNotFound = errors.New("catalog item not found")

	// Webhook errors
	ErrSignatureInvalid = errors.New("invalid signature")

	// Idempotency errors
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// Lock errors
	ErrLockAcquisitionFailed = errors.New("failed to acquire lock")
	ErrLockNotHeld           = errors.New("lock not held")
	ErrJobAlreadyRunning     = errors.New("job already running")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewConnectionError wraps a transport failure so that it matches ErrConnection
// and carries the message shown to the end user.
func NewConnectionError(cause error) *DomainError {
	return &DomainError{
		Code:    "provider_connection",
		Message: ConnectionMessage,
		Err:     fmt.Errorf("%w: %v", ErrConnection, cause),
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
