package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name: "with wrapped error",
			err: &DomainError{
				Code:    "link_failed",
				Message: "payment link generation failed",
				Err:     errors.New("serviceStatus ERROR"),
			},
			expected: "payment link generation failed: serviceStatus ERROR",
		},
		{
			name: "without wrapped error",
			err: &DomainError{
				Code:    "invalid_state",
				Message: "transaction cannot be updated",
			},
			expected: "transaction cannot be updated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	domainErr := NewDomainError("test", "test message", originalErr)

	assert.Equal(t, originalErr, domainErr.Unwrap())
}

func TestNewDomainError_NilWrappedError(t *testing.T) {
	err := NewDomainError("test_code", "test message", nil)

	assert.Equal(t, "test_code", err.Code)
	assert.Equal(t, "test message", err.Message)
	assert.Nil(t, err.Err)
}

func TestNewConnectionError(t *testing.T) {
	err := NewConnectionError(errors.New("dial tcp: i/o timeout"))

	assert.ErrorIs(t, err, ErrConnection)
	assert.Equal(t, "provider_connection", err.Code)
	assert.Contains(t, err.Error(), ConnectionMessage)
	assert.Contains(t, err.Error(), "i/o timeout")
}

func TestValidationError_Error(t *testing.T) {
	err := NewValidationError("reference", "cannot be empty")

	assert.Equal(t, "reference", err.Field)
	assert.Equal(t, "validation failed for field reference: cannot be empty", err.Error())
}

func TestErrorUnwrapping(t *testing.T) {
	wrappedErr := NewDomainError("lookup_failed", "reference lookup failed", ErrAmbiguousReference)

	assert.True(t, errors.Is(wrappedErr, ErrAmbiguousReference))
	assert.False(t, errors.Is(wrappedErr, ErrTransactionNotFound))
}
