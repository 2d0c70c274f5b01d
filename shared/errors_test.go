package shared

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceErrorMatchesSentinelByCode(t *testing.T) {
	err := NewValidationError(CodeInvalidAmount, "TransAmount", "bad amount", "webhook-verifier", "Verify")
	wrapped := fmt.Errorf("ingest: %w", err)

	assert.True(t, errors.Is(wrapped, ErrInvalidAmount))
	assert.False(t, errors.Is(wrapped, ErrInvalidShortcode))

	serviceErr, ok := AsServiceError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "TransAmount", serviceErr.Field)
	assert.True(t, serviceErr.IsValidation())
	assert.False(t, serviceErr.IsRetryable())
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err    *ServiceError
		status int
	}{
		{NewValidationError(CodeInvalidSignature, "", "x", "s", "o"), http.StatusForbidden},
		{NewValidationError(CodeSchemaError, "TransID", "x", "s", "o"), http.StatusBadRequest},
		{NewValidationError(CodeInvalidAmount, "", "x", "s", "o"), http.StatusBadRequest},
		{NewValidationError(CodeInvalidShortcode, "", "x", "s", "o"), http.StatusBadRequest},
		{NewValidationError(CodeMissingRegion, "", "x", "s", "o"), http.StatusBadRequest},
		{NewValidationError(CodeInvalidInput, "", "x", "s", "o"), http.StatusBadRequest},
		{NewValidationError(CodeTipTooSmall, "", "x", "s", "o"), http.StatusBadRequest},
		{NewPersistenceError("Ingest", errors.New("disk full")), http.StatusInternalServerError},
		{NewAuthFailure("GetAuthToken", "no token", nil), http.StatusBadGateway},
		{NewGatewayFailure("InitiatePayment", 500, "boom", nil), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
		})
	}
}

func TestGatewayFailureCarriesStatusAndBody(t *testing.T) {
	err := NewGatewayFailure("QueryStatus", 503, `{"errorMessage":"down"}`, nil)
	assert.Equal(t, 503, err.Status)
	assert.Equal(t, `{"errorMessage":"down"}`, err.Body)
	assert.True(t, err.IsRetryable())

	transport := NewGatewayFailure("QueryStatus", 0, "", errors.New("connection refused"))
	assert.Equal(t, 0, transport.Status)
	assert.Contains(t, transport.Message, "connection refused")
	assert.ErrorIs(t, transport, ErrGatewayFailure)
}

func TestPersistenceErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewPersistenceError("Ingest", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.True(t, err.IsRetryable())
}
