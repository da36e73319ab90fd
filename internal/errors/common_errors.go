package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeMalformedSeries ErrorType = "MALFORMED_SERIES"
	ErrTypeEmptyInput      ErrorType = "EMPTY_INPUT"
	ErrTypeNoOverlap       ErrorType = "NO_OVERLAP"
	ErrTypeUnknownJoinMode ErrorType = "UNKNOWN_JOIN_MODE"
	ErrTypeFileNotFound    ErrorType = "FILE_NOT_FOUND"
	ErrTypeValidation      ErrorType = "VALIDATION"
	ErrTypeConfig          ErrorType = "CONFIG"
	ErrTypeStorage         ErrorType = "STORAGE"
	ErrTypeNetwork         ErrorType = "NETWORK"
)

// Sentinels for errors.Is. Any AppError of the same type matches.
var (
	ErrMalformedSeries = &AppError{Type: ErrTypeMalformedSeries, Message: "malformed series"}
	ErrEmptyInput      = &AppError{Type: ErrTypeEmptyInput, Message: "empty input"}
	ErrNoOverlap       = &AppError{Type: ErrTypeNoOverlap, Message: "no overlapping weeks"}
	ErrUnknownJoinMode = &AppError{Type: ErrTypeUnknownJoinMode, Message: "unknown join mode"}
	ErrFileNotFound    = &AppError{Type: ErrTypeFileNotFound, Message: "file not found"}
	ErrValidation      = &AppError{Type: ErrTypeValidation, Message: "validation failed"}
	ErrConfig          = &AppError{Type: ErrTypeConfig, Message: "invalid configuration"}
	ErrStorage         = &AppError{Type: ErrTypeStorage, Message: "storage failure"}
	ErrNetwork         = &AppError{Type: ErrTypeNetwork, Message: "network failure"}
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

// Is matches another AppError by type
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
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

// TypeOf returns the type of the first AppError in err's chain, or "" if none
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// Helper functions for common error types

// NewMalformedSeries reports a series that violates its schema or ordering
func NewMalformedSeries(format string, args ...interface{}) *AppError {
	return NewAppError(ErrTypeMalformedSeries, fmt.Sprintf(format, args...), nil)
}

// NewEmptyInput reports a series or file without rows
func NewEmptyInput(format string, args ...interface{}) *AppError {
	return NewAppError(ErrTypeEmptyInput, fmt.Sprintf(format, args...), nil)
}

// NewNoOverlap reports an alignment where no week survives
func NewNoOverlap(format string, args ...interface{}) *AppError {
	return NewAppError(ErrTypeNoOverlap, fmt.Sprintf(format, args...), nil)
}

// NewUnknownJoinMode reports a frequency class or join mode with no join rule
func NewUnknownJoinMode(mode string) *AppError {
	return NewAppError(ErrTypeUnknownJoinMode, fmt.Sprintf("unknown join mode %q", mode), nil)
}

// NewFileNotFound reports a missing input file
func NewFileNotFound(path string, cause error) *AppError {
	return NewAppError(ErrTypeFileNotFound, fmt.Sprintf("%s not found", path), cause).WithContext("path", path)
}

// NewValidationError creates a validation error
func NewValidationError(format string, args ...interface{}) *AppError {
	return NewAppError(ErrTypeValidation, fmt.Sprintf(format, args...), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewNetworkError creates a network-related error
func NewNetworkError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNetwork, message, cause)
}
