// Package errors provides structured error handling for SkyTrace
package errors

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorCode represents an application error code
type ErrorCode string

const (
	// General errors
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrBadRequest ErrorCode = "BAD_REQUEST"

	// Pipeline errors
	ErrValidation      ErrorCode = "VALIDATION_ERROR"
	ErrEnrichment      ErrorCode = "ENRICHMENT_FAILURE"
	ErrDegenerateInput ErrorCode = "DEGENERATE_INPUT"
	ErrExport          ErrorCode = "EXPORT_ERROR"
	ErrEmptyDataset    ErrorCode = "EMPTY_DATASET"
)

// AppError represents a structured application error
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    []string  `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Err        error     `json:"-"` // Original error for logging
}

// Error implements the error interface
func (e *AppError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the original error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds detail messages to the error
func (e *AppError) WithDetails(details ...string) *AppError {
	e.Details = append(e.Details, details...)
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an existing error into an AppError
func Wrap(err error, code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// Validation creates a validation error carrying the full list of problems
// found in a dataset. The caller decides whether to proceed.
func Validation(problems []string) *AppError {
	return &AppError{
		Code:       ErrValidation,
		Message:    "dataset validation failed",
		Details:    problems,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// Export creates an error naming an unsupported export format
func Export(format string) *AppError {
	return &AppError{
		Code:       ErrExport,
		Message:    fmt.Sprintf("unsupported export format: %s", format),
		StatusCode: http.StatusBadRequest,
	}
}

// NotFound creates a not-found error
func NotFound(what string) *AppError {
	return &AppError{
		Code:       ErrNotFound,
		Message:    what + " not found",
		StatusCode: http.StatusNotFound,
	}
}

// BadRequest creates a bad-request error
func BadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// Internal creates an internal server error
func Internal(err error) *AppError {
	return &AppError{
		Code:       ErrInternal,
		Message:    "internal server error",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// Respond writes an error as a JSON response. Non-AppError values are
// reported as opaque internal errors.
func Respond(c *gin.Context, err error) {
	if appErr, ok := err.(*AppError); ok {
		c.JSON(appErr.StatusCode, gin.H{"error": appErr})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{"code": ErrInternal, "message": "internal server error"},
	})
}
