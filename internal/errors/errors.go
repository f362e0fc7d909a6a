package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIError is a request-level failure detected before any analysis runs:
// bad query parameters, a missing upload, a rejected media type.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`

	// problemType is the RFC 7807 type URI; empty derives it from StatusCode.
	problemType string
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ProblemType returns the RFC 7807 type URI for e.
func (e *APIError) ProblemType() string {
	if e.problemType != "" {
		return e.problemType
	}
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return TypeRateLimit
	case e.StatusCode == http.StatusRequestEntityTooLarge:
		return TypePayloadTooLarge
	case e.StatusCode == http.StatusNotFound:
		return TypeNotFound
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return TypeValidation
	}
	return TypeInternal
}

// ValidationError is one rejected request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates an APIError.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

// NewWithDetails creates an APIError carrying extra details.
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message, Details: details}
}

var (
	ErrMissingArchive     = New(http.StatusBadRequest, "MISSING_ARCHIVE", "Request body must contain a zip archive")
	ErrMissingContentType = New(http.StatusBadRequest, "MISSING_CONTENT_TYPE", "Content-Type header is required")
	ErrRateLimited        = New(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded")
)

// UnsupportedMediaType rejects an upload whose Content-Type is not one of
// allowed.
func UnsupportedMediaType(contentType string, allowed []string) *APIError {
	return NewWithDetails(http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Unsupported content type",
		map[string]interface{}{
			"content_type": contentType,
			"allowed":      allowed,
		})
}

// InvalidRequestWithError wraps a decoding failure.
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error())
}

// ErrValidation rejects a single request field.
func ErrValidation(field, message string) *APIError {
	return NewValidationErrors([]ValidationError{{Field: field, Message: message}})
}

// NewValidationErrors rejects one or more request fields.
func NewValidationErrors(errs []ValidationError) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", errs)
}
