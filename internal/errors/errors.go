package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NotFoundError creates a 404 for a named resource
func NotFoundError(resource string) *APIError {
	return New(http.StatusNotFound, "NOT_FOUND", resource+" not found")
}

// FromError maps an error onto an API response. AppErrors keep their type
// as the error code.
func FromError(err error) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}

	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", err.Error())
	}

	status := http.StatusInternalServerError
	switch appErr.Type {
	case ErrTypeFileNotFound, ErrTypeEmptyInput:
		status = http.StatusNotFound
	case ErrTypeValidation, ErrTypeMalformedSeries, ErrTypeUnknownJoinMode:
		status = http.StatusUnprocessableEntity
	case ErrTypeNoOverlap:
		status = http.StatusConflict
	case ErrTypeNetwork:
		status = http.StatusBadGateway
	}
	return New(status, string(appErr.Type), appErr.Error())
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(err *APIError) *ErrorResponse {
	return &ErrorResponse{
		Success: false,
		Error:   err,
	}
}

// Render implements the render.Renderer interface
func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return e.Error.Render(w, r)
}
