package error

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeCredentialFetch ErrorType = "credential_fetch_error"
	ErrorTypeTransport       ErrorType = "transport_error"
	ErrorTypeDecode          ErrorType = "decode_error"
	ErrorTypeAPI             ErrorType = "api_error"
	ErrorTypeValidation      ErrorType = "validation_error"
	ErrorTypeInternal        ErrorType = "internal_error"
	ErrorTypeNotFound        ErrorType = "not_found"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType       `json:"type"`
	Message    string          `json:"message"`
	StatusCode int             `json:"-"`
	Upstream   *UpstreamDetail `json:"upstream,omitempty"`
	Err        error           `json:"-"`
}

// UpstreamDetail carries what the platform reported for a failed call.
type UpstreamDetail struct {
	Status  int    `json:"status"`
	Code    int    `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// ------------------------------------------------------------------------------------------------------
// Error implements the error interface
func (e *AppError) Error() string {
	if e.Upstream != nil {
		return fmt.Sprintf("%s: %s (status %d, code %d)", e.Type, e.Message, e.Upstream.Status, e.Upstream.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ------------------------------------------------------------------------------------------------------
func (e *AppError) Unwrap() error {
	return e.Err
}

// ------------------------------------------------------------------------------------------------------
// NewCredentialFetchError creates an error for a failed access token fetch
func NewCredentialFetchError(message string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeCredentialFetch,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Err:        err,
	}
}

// ------------------------------------------------------------------------------------------------------
// NewTransportError creates an error for a platform call that never completed
func NewTransportError(message string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeTransport,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Err:        err,
	}
}

// ------------------------------------------------------------------------------------------------------
// NewDecodeError creates an error for a response body that could not be parsed
func NewDecodeError(message string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeDecode,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Err:        err,
	}
}

// ------------------------------------------------------------------------------------------------------
// NewAPIError creates an error for a failure reported by the platform
func NewAPIError(message string, status, code int, traceID string) *AppError {
	return &AppError{
		Type:       ErrorTypeAPI,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Upstream: &UpstreamDetail{
			Status:  status,
			Code:    code,
			TraceID: traceID,
		},
	}
}

// ------------------------------------------------------------------------------------------------------
// NewValidationError creates a validation error
func NewValidationError(message string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// ------------------------------------------------------------------------------------------------------
// NewInternalError creates an internal server error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// ------------------------------------------------------------------------------------------------------
// NewNotFoundError creates a not found error
func NewNotFoundError(message string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
		Err:        err,
	}
}

// ------------------------------------------------------------------------------------------------------
// IsType reports whether err is an *AppError of the given type
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// ------------------------------------------------------------------------------------------------------
// UpstreamStatus returns the platform HTTP status of an API error, or 0
func UpstreamStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Upstream != nil {
		return appErr.Upstream.Status
	}
	return 0
}

// ------------------------------------------------------------------------------------------------------
// GetHTTPStatusCode returns the appropriate HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	if errors.Is(err, ErrTimeout) {
		return http.StatusGatewayTimeout
	}

	return http.StatusInternalServerError
}

// ------------------------------------------------------------------------------------------------------
// ErrorResponse represents the JSON error response structure
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ------------------------------------------------------------------------------------------------------
// ErrorDetail contains error details
type ErrorDetail struct {
	Type     ErrorType       `json:"type"`
	Message  string          `json:"message"`
	Code     string          `json:"code,omitempty"`
	Upstream *UpstreamDetail `json:"upstream,omitempty"`
}

// ------------------------------------------------------------------------------------------------------
// NewErrorResponse creates a standardized error response
func NewErrorResponse(err error) ErrorResponse {
	var appErr *AppError

	if errors.As(err, &appErr) {
		return ErrorResponse{
			Error: ErrorDetail{
				Type:     appErr.Type,
				Message:  appErr.Message,
				Code:     string(appErr.Type),
				Upstream: appErr.Upstream,
			},
		}
	}

	return ErrorResponse{
		Error: ErrorDetail{
			Type:    ErrorTypeInternal,
			Message: err.Error(),
			Code:    string(ErrorTypeInternal),
		},
	}
}
