package apperrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceErrorError(t *testing.T) {
	tests := []struct {
		name     string
		svcError *ServiceError
		expected string
	}{
		{
			name: "With Message",
			svcError: &ServiceError{
				StatusCode: 400,
				Message:    "insufficient data",
			},
			expected: "ledger service error (status 400): insufficient data",
		},
		{
			name: "Without Message",
			svcError: &ServiceError{
				StatusCode: 502,
			},
			expected: "ledger service error (status 502)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.svcError.Error())
		})
	}
}

func TestNewValidationErrorWrapsSentinel(t *testing.T) {
	err := NewValidationError("amount", "must be positive")

	assert.True(t, errors.Is(err, ErrValidation))

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "amount", ve.Field)
	assert.Contains(t, err.Error(), "must be positive")
}

func TestWrapTransportError(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapTransportError(cause, "GET /api/loans")

	assert.True(t, errors.Is(err, ErrTransport))
	assert.True(t, errors.Is(err, cause))
	assert.NotErrorIs(t, err, ErrDecode)
}

func TestWrapDecodeError(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := WrapDecodeError(cause, "loan body")

	assert.True(t, errors.Is(err, ErrDecode))
	assert.NotErrorIs(t, err, ErrTransport)
}
