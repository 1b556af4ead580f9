package errors

import (
	"context"
	"errors"
	"fmt"
)

// Error is the structured error type for Vellum.
// It carries a machine-readable code alongside the human message so
// callers can branch on kind without string matching.
type Error struct {
	// Code is the unique error code (e.g., "ERR_403_QUERY_PARSE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Network, Validation, Store).
	Category Category

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, enabling errors.Is with code sentinels.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a new Error with the given code and message.
// Category and retryable flag are derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Newf creates a new Error with a formatted message.
func Newf(code string, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates an Error from an existing error, preserving it as the cause.
// Returns nil if err is nil.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Validation creates an input-validation error. Never retried.
func Validation(message string) *Error {
	return New(ErrCodeInvalidInput, message, nil)
}

// QueryParse creates a malformed-query error.
func QueryParse(message string) *Error {
	return New(ErrCodeQueryParse, message, nil)
}

// Embedding wraps an embedder failure after retries are exhausted.
func Embedding(message string, cause error) *Error {
	return New(ErrCodeEmbeddingFailed, message, cause)
}

// Fulltext wraps a lexical-search store failure.
func Fulltext(cause error) *Error {
	return New(ErrCodeFulltextSearch, "full-text search failed: "+cause.Error(), cause)
}

// Database wraps a permanent store failure.
func Database(cause error) *Error {
	return New(ErrCodeDatabase, "database error: "+cause.Error(), cause)
}

// Timeout creates a cancellation/deadline error.
func Timeout(message string) *Error {
	return New(ErrCodeTimeout, message, context.DeadlineExceeded)
}

// Processing wraps an ingestion pipeline failure.
func Processing(message string, cause error) *Error {
	return New(ErrCodeDocumentProcessing, message, cause)
}

// NotFound creates a missing-entity error.
func NotFound(what string, id int64) *Error {
	return Newf(ErrCodeNotFound, "%s %d not found", what, id)
}

// IsRetryable reports whether err (or anything it wraps) is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetCode extracts the error code, or empty string for foreign errors.
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsValidation reports whether err is a validation or parse error.
func IsValidation(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Category == CategoryValidation
	}
	return false
}

// IsTimeout reports whether err is a cancellation or deadline error.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	return GetCode(err) == ErrCodeTimeout
}
