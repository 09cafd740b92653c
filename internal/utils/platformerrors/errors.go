package platformerrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "VALIDATION"
	ErrorTypeNotFound      ErrorType = "NOT_FOUND"
	ErrorTypeUsageLimit    ErrorType = "USAGE_LIMIT"
	ErrorTypeQuotaExceeded ErrorType = "QUOTA_EXCEEDED"
	ErrorTypeExternal      ErrorType = "EXTERNAL"
	ErrorTypeMalformed     ErrorType = "MALFORMED_RESPONSE"
	ErrorTypeInternal      ErrorType = "INTERNAL"
)

// Layer represents the application layer where the error occurred
type Layer string

const (
	LayerDomain         Layer = "domain"
	LayerHandler        Layer = "handler"
	LayerInfrastructure Layer = "infrastructure"
)

// PlatformError represents an error with context and metadata.
// The Message field is safe for operators but never sent to callers verbatim;
// SafeMessage carries the caller-facing text.
type PlatformError struct {
	Type        ErrorType
	Message     string
	SafeMessage string
	Err         error
	RequestID   string
	Layer       Layer
	Timestamp   time.Time
}

// Error implements the error interface
func (e *PlatformError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s][%s] %s: %v", e.Layer, e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s][%s] %s", e.Layer, e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *PlatformError) Unwrap() error {
	return e.Err
}

// CallerMessage returns text that may be surfaced to API callers.
// Internal detail (provider identity, upstream bodies) never leaks here.
func (e *PlatformError) CallerMessage() string {
	if e.SafeMessage != "" {
		return e.SafeMessage
	}
	switch e.Type {
	case ErrorTypeQuotaExceeded:
		return "service is busy, please try again later"
	case ErrorTypeExternal, ErrorTypeMalformed:
		return "an upstream service is unavailable, please try again later"
	case ErrorTypeNotFound:
		return "resource not found"
	case ErrorTypeValidation:
		return "invalid request"
	default:
		return "internal server error"
	}
}

// HTTPStatus maps the error type to an HTTP status code
func (e *PlatformError) HTTPStatus() int {
	switch e.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeUsageLimit:
		return http.StatusForbidden
	case ErrorTypeQuotaExceeded, ErrorTypeExternal, ErrorTypeMalformed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewError creates a new PlatformError with the specified parameters
func NewError(ctx context.Context, layer Layer, errorType ErrorType, message string, err error) *PlatformError {
	return &PlatformError{
		Type:      errorType,
		Message:   message,
		Err:       err,
		RequestID: getRequestIDFromContext(ctx),
		Layer:     layer,
		Timestamp: time.Now().UTC(),
	}
}

// AsError wraps an arbitrary error into a PlatformError, preserving an
// existing PlatformError if the chain already carries one.
func AsError(ctx context.Context, layer Layer, err error, message string) *PlatformError {
	var pe *PlatformError
	if errors.As(err, &pe) {
		return pe
	}
	return NewError(ctx, layer, ErrorTypeInternal, message, err)
}

func getRequestIDFromContext(ctx context.Context) string {
	val := ctx.Value("requestID")
	if requestID, ok := val.(string); ok {
		return requestID
	}
	return ""
}
