package shared

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	ErrorCategoryNetwork        ErrorCategory = "network"
	ErrorCategoryDatabase       ErrorCategory = "database"
	ErrorCategoryValidation     ErrorCategory = "validation"
	ErrorCategoryAuthentication ErrorCategory = "authentication"
)

// Error codes shared by every component. Validation codes are caller errors;
// the rest are infrastructure errors whose retry policy belongs to the caller.
const (
	CodeAuthFailure      = "AUTH_FAILURE"
	CodeGatewayFailure   = "GATEWAY_FAILURE"
	CodeInvalidSignature = "INVALID_SIGNATURE"
	CodeSchemaError      = "SCHEMA_ERROR"
	CodeInvalidAmount    = "INVALID_AMOUNT"
	CodeInvalidShortcode = "INVALID_SHORTCODE"
	CodeMissingRegion    = "MISSING_REGION"
	CodePersistenceError = "PERSISTENCE_ERROR"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeTipTooSmall      = "TIP_TOO_SMALL"
)

// Sentinels for errors.Is. A *ServiceError matches a sentinel when the codes are equal.
var (
	ErrAuthFailure      = &ServiceError{Code: CodeAuthFailure}
	ErrGatewayFailure   = &ServiceError{Code: CodeGatewayFailure}
	ErrInvalidSignature = &ServiceError{Code: CodeInvalidSignature}
	ErrSchema           = &ServiceError{Code: CodeSchemaError}
	ErrInvalidAmount    = &ServiceError{Code: CodeInvalidAmount}
	ErrInvalidShortcode = &ServiceError{Code: CodeInvalidShortcode}
	ErrMissingRegion    = &ServiceError{Code: CodeMissingRegion}
	ErrPersistence      = &ServiceError{Code: CodePersistenceError}
	ErrInvalidInput     = &ServiceError{Code: CodeInvalidInput}
	ErrTipTooSmall      = &ServiceError{Code: CodeTipTooSmall}
)

// ServiceError represents a standardized error with additional context
type ServiceError struct {
	Category    ErrorCategory `json:"category"`
	Code        string        `json:"code"`
	Message     string        `json:"message"`
	Field       string        `json:"field,omitempty"`
	Status      int           `json:"status,omitempty"`
	Body        string        `json:"body,omitempty"`
	Details     interface{}   `json:"details,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	ServiceName string        `json:"service_name"`
	Operation   string        `json:"operation"`
	Retryable   bool          `json:"retryable"`
	Cause       error         `json:"-"` // Original error, not serialized
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a ServiceError with the same code.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// NewServiceError creates a new service error
func NewServiceError(category ErrorCategory, code, message, serviceName, operation string, retryable bool, cause error) *ServiceError {
	return &ServiceError{
		Category:    category,
		Code:        code,
		Message:     message,
		Timestamp:   time.Now(),
		ServiceName: serviceName,
		Operation:   operation,
		Retryable:   retryable,
		Cause:       cause,
	}
}

// WithDetails adds additional details to the error
func (e *ServiceError) WithDetails(details interface{}) *ServiceError {
	e.Details = details
	return e
}

// IsRetryable returns whether the error is retryable
func (e *ServiceError) IsRetryable() bool {
	return e.Retryable
}

// IsValidation reports whether the error was caused by the caller's input.
func (e *ServiceError) IsValidation() bool {
	return e.Category == ErrorCategoryValidation
}

// HTTPStatus maps the error code onto the response status used by the handlers.
func (e *ServiceError) HTTPStatus() int {
	switch e.Code {
	case CodeInvalidSignature:
		return http.StatusForbidden
	case CodeSchemaError, CodeInvalidAmount, CodeInvalidShortcode, CodeMissingRegion,
		CodeInvalidInput, CodeTipTooSmall:
		return http.StatusBadRequest
	case CodeAuthFailure, CodeGatewayFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// LogError logs the error with structured fields
func (e *ServiceError) LogError() {
	entry := logrus.WithFields(logrus.Fields{
		"error_category":   e.Category,
		"error_code":       e.Code,
		"error_message":    e.Message,
		"service_name":     e.ServiceName,
		"operation":        e.Operation,
		"retryable":        e.Retryable,
		"details":          e.Details,
		"underlying_error": e.Cause,
	})
	if e.IsValidation() {
		entry.Warn("Request rejected")
		return
	}
	entry.Error("Service error occurred")
}

// NewAuthFailure reports that a gateway bearer token could not be obtained.
func NewAuthFailure(operation, message string, cause error) *ServiceError {
	return NewServiceError(ErrorCategoryAuthentication, CodeAuthFailure, message, "gateway-client", operation, true, cause)
}

// NewGatewayFailure carries the gateway's HTTP status and raw body. Status is 0 on transport errors.
func NewGatewayFailure(operation string, status int, body string, cause error) *ServiceError {
	msg := fmt.Sprintf("gateway request failed with status %d", status)
	if status == 0 && cause != nil {
		msg = "gateway request failed: " + cause.Error()
	}
	e := NewServiceError(ErrorCategoryNetwork, CodeGatewayFailure, msg, "gateway-client", operation, true, cause)
	e.Status = status
	e.Body = body
	return e
}

// NewValidationError creates a caller error; field may be empty.
func NewValidationError(code, field, message, serviceName, operation string) *ServiceError {
	e := NewServiceError(ErrorCategoryValidation, code, message, serviceName, operation, false, nil)
	e.Field = field
	return e
}

// NewPersistenceError wraps a store failure. The caller owns the retry.
func NewPersistenceError(operation string, cause error) *ServiceError {
	msg := "record store failure"
	if cause != nil {
		msg = "record store failure: " + cause.Error()
	}
	return NewServiceError(ErrorCategoryDatabase, CodePersistenceError, msg, "pledge-store", operation, true, cause)
}

// AsServiceError extracts a *ServiceError from err, if there is one.
func AsServiceError(err error) (*ServiceError, bool) {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr, true
	}
	return nil, false
}
