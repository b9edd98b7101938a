// Package errors provides standardized error handling for the CRM service and
// its HTTP surface.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodePromptRequired  ErrorCode = "PROMPT_REQUIRED"
	ErrCodeInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrCodeUnauthenticated ErrorCode = "UNAUTHENTICATED"
	ErrCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"

	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeConfigMissing ErrorCode = "CONFIG_MISSING"

	ErrCodeAIRequestTimeout      ErrorCode = "AI_REQUEST_TIMEOUT"
	ErrCodeModelCallFailed       ErrorCode = "MODEL_CALL_FAILED"
	ErrCodeMaxIterationsExceeded ErrorCode = "MAX_ITERATIONS_EXCEEDED"

	ErrCodeDatabaseQueryFailed  ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeDatabaseInsertFailed ErrorCode = "DATABASE_INSERT_FAILED"

	ErrCodeSearchIndexUnavailable ErrorCode = "SEARCH_INDEX_UNAVAILABLE"
	ErrCodeWebSearchFailed        ErrorCode = "WEB_SEARCH_FAILED"
	ErrCodeWebSearchTimeout       ErrorCode = "WEB_SEARCH_TIMEOUT"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches another StandardError by code, so constructed errors can serve
// as sentinels for errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	return ok && t.Code == e.Code
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 2. Error Constructors
// ==========================

func NewPromptRequiredError() *StandardError {
	return newError(ErrCodePromptRequired, "prompt is required", "", false)
}

func NewInvalidRequestError(details string) *StandardError {
	return newError(ErrCodeInvalidRequest, "invalid request body", details, false)
}

func NewUnauthenticatedError() *StandardError {
	return newError(ErrCodeUnauthenticated, "Unauthorized", "", false)
}

func NewForbiddenError(details string) *StandardError {
	return newError(ErrCodeForbidden, "Forbidden", details, false)
}

func NewNotFoundError(resource, id string) *StandardError {
	return newError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), id, false)
}

// NewValidationError carries per-field messages in Metadata["fields"].
func NewValidationError(fields map[string]string) *StandardError {
	parts := make([]string, 0, len(fields))
	for f, msg := range fields {
		parts = append(parts, f+": "+msg)
	}
	e := newError(ErrCodeValidationFailed, "validation failed", strings.Join(parts, "; "), false)
	e.Metadata = map[string]interface{}{"fields": fields}
	return e
}

// NewConfigMissingError is returned before any outbound call when a
// credential is absent.
func NewConfigMissingError(setting string) *StandardError {
	return newError(ErrCodeConfigMissing, fmt.Sprintf("%s is not configured", setting), "", false)
}

func NewAIRequestTimeoutError() *StandardError {
	return newError(ErrCodeAIRequestTimeout, "AI request timed out", "", true)
}

func NewModelCallFailedError(err error) *StandardError {
	return newError(ErrCodeModelCallFailed, "Failed to process AI request", err.Error(), true)
}

func NewMaxIterationsExceededError(limit int) *StandardError {
	return newError(ErrCodeMaxIterationsExceeded, "AI request did not complete",
		fmt.Sprintf("model requested tools for %d consecutive rounds", limit), false)
}

func NewDatabaseQueryFailedError(op string, err error) *StandardError {
	return newError(ErrCodeDatabaseQueryFailed, "Database query failed", op+": "+err.Error(), true)
}

func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Failed to insert record", err.Error(), true)
}

func NewSearchIndexUnavailableError() *StandardError {
	return newError(ErrCodeSearchIndexUnavailable, "search index is not enabled", "", false)
}

func NewWebSearchFailedError(err error) *StandardError {
	e := newError(ErrCodeWebSearchFailed, "Web search failed", err.Error(), true)
	e.cause = err
	return e
}

func NewWebSearchTimeoutError() *StandardError {
	return newError(ErrCodeWebSearchTimeout, "Web search timed out", "", true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// ==========================
// 3. Utility Functions
// ==========================

// Normalize ensures we always have a StandardError. Deadline errors map to
// the AI timeout code since the request deadline is the only one in play.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewAIRequestTimeoutError()
	}
	return NewInternalError(err)
}

// Describe renders err for a tool result: message plus details for a
// StandardError, the plain text otherwise.
func Describe(err error) string {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		if stdErr.Details != "" {
			return stdErr.Message + ": " + stdErr.Details
		}
		return stdErr.Message
	}
	return err.Error()
}

// Is reports whether err is a StandardError with the given code.
func Is(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "AI_") || strings.Contains(codeStr, "MODEL") || strings.Contains(codeStr, "ITERATIONS"):
		return "AI"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "REQUIRED"):
		return "VALIDATION"
	case strings.Contains(codeStr, "AUTH") || code == ErrCodeForbidden:
		return "AUTH"
	default:
		return "OTHER"
	}
}
