package errors

import (
	"encoding/json"
	"strings"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest           ErrorCode = "bad_request"
	ErrCodeNotFound             ErrorCode = "not_found"
	ErrCodeValidationFailed     ErrorCode = "validation_failed"
	ErrCodePayloadTooLarge      ErrorCode = "payload_too_large"
	ErrCodeUnsupportedMediaType ErrorCode = "unsupported_media_type"
	ErrCodeRenditionFailed      ErrorCode = "rendition_failed"

	// Server errors (5xx)
	ErrCodeInternalError ErrorCode = "internal_error"
	ErrCodeTimeout       ErrorCode = "timeout"
)

// APIError represents a structured API error that carries error code and details
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	jsonErr, _ := json.Marshal(e)
	return string(jsonErr)
}

func newAPIError(code ErrorCode, message string, details []string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

// Error constructors for common error types
func NewBadRequestError(message string, details ...string) *APIError {
	return newAPIError(ErrCodeBadRequest, message, details)
}

func NewNotFoundError(message string, details ...string) *APIError {
	return newAPIError(ErrCodeNotFound, message, details)
}

func NewValidationError(details ...string) *APIError {
	return newAPIError(ErrCodeValidationFailed, "Validation failed", details)
}

func NewPayloadTooLargeError(message string, details ...string) *APIError {
	return newAPIError(ErrCodePayloadTooLarge, message, details)
}

func NewUnsupportedMediaTypeError(message string, details ...string) *APIError {
	return newAPIError(ErrCodeUnsupportedMediaType, message, details)
}

func NewRenditionError(message string, details ...string) *APIError {
	return newAPIError(ErrCodeRenditionFailed, message, details)
}

func NewInternalError(message string, details ...string) *APIError {
	return newAPIError(ErrCodeInternalError, message, details)
}

func NewTimeoutError(message string, details ...string) *APIError {
	return newAPIError(ErrCodeTimeout, message, details)
}
