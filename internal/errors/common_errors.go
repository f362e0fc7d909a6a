package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeParsing     ErrorType = "PARSING"
	ErrTypeUnknownCode ErrorType = "UNKNOWN_CODE"
	ErrTypeArchive     ErrorType = "ARCHIVE"
	ErrTypeInvariant   ErrorType = "INVARIANT"
	ErrTypeStorage     ErrorType = "STORAGE"
	ErrTypeValidation  ErrorType = "VALIDATION"
	ErrTypeNotFound    ErrorType = "NOT_FOUND"
	ErrTypeConfig      ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// LogAttrs returns the error, its type and its context (sorted by key) as
// slog attributes.
func (e *AppError) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("error", e.Error()),
		slog.String("error_type", string(e.Type)),
	}
	if len(e.Context) == 0 {
		return attrs
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ctx := make([]any, 0, len(keys))
	for _, k := range keys {
		ctx = append(ctx, slog.Any(k, e.Context[k]))
	}
	return append(attrs, slog.Group("error_context", ctx...))
}

// ErrorAttrs is LogAttrs for any error. Errors without an AppError in their
// chain only carry the message.
func ErrorAttrs(err error) []slog.Attr {
	var appErr *AppError
	if errors.As(err, &appErr) {
		attrs := appErr.LogAttrs()
		attrs[0] = slog.String("error", err.Error())
		return attrs
	}
	return []slog.Attr{slog.String("error", err.Error())}
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// TypeOf returns the type of the first AppError in the chain, or "" when
// err carries none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err wraps an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}

// Helper functions for common error types

// NewParsingError creates a malformed-record error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewUnknownCodeError creates an error for a code missing from its lookup table
func NewUnknownCodeError(kind, code string) *AppError {
	return NewAppError(ErrTypeUnknownCode, fmt.Sprintf("unknown %s code %q", kind, code), nil).
		WithContext("kind", kind).
		WithContext("code", code)
}

// NewArchiveError creates an archive-structure error
func NewArchiveError(message string, cause error) *AppError {
	return NewAppError(ErrTypeArchive, message, cause)
}

// NewInvariantError creates an error for a violated data invariant
func NewInvariantError(message string) *AppError {
	return NewAppError(ErrTypeInvariant, message, nil)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
