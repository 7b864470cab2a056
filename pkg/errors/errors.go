// Package errors provides structured error handling for QueryGate
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeConnection represents backend connection errors
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeQuery represents query execution errors
	ErrorTypeQuery ErrorType = "query"

	// ErrorTypePoolExhausted indicates no pooled resource became available
	// before the acquire timeout. Retryable: callers should back off.
	ErrorTypePoolExhausted ErrorType = "pool_exhausted"
	// ErrorTypeResourceCreateFailed indicates the resource factory failed
	// while creating or replacing a backend connection.
	ErrorTypeResourceCreateFailed ErrorType = "resource_create_failed"
	// ErrorTypePoolClosed indicates an operation against a shut-down pool.
	ErrorTypePoolClosed ErrorType = "pool_closed"

	// Validation rejections. Non-retryable: the request is categorically
	// disallowed and is never forwarded to a backend.

	// ErrorTypeEmptyRequest indicates an empty or whitespace-only query
	ErrorTypeEmptyRequest ErrorType = "empty_request"
	// ErrorTypeTooLong indicates a query exceeding the configured length limit
	ErrorTypeTooLong ErrorType = "too_long"
	// ErrorTypeReadOnlyViolation indicates a write operation in read-only mode
	ErrorTypeReadOnlyViolation ErrorType = "read_only_violation"
	// ErrorTypeSuspiciousPattern indicates an injection heuristic match
	ErrorTypeSuspiciousPattern ErrorType = "suspicious_pattern"
	// ErrorTypeBlockedKeyword indicates a configured blocked keyword match
	ErrorTypeBlockedKeyword ErrorType = "blocked_keyword"
	// ErrorTypeBlockedResource indicates a reference to a blocked table or view
	ErrorTypeBlockedResource ErrorType = "blocked_resource"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsRetryable returns true if the error is retryable. Pool exhaustion is a
// timeout, not a corruption: the caller should back off and try again.
// Validation rejections and factory failures are not retryable.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Type {
	case ErrorTypePoolExhausted, ErrorTypeConnection:
		return true
	default:
		return false
	}
}

// IsValidation returns true if the error is a security gate rejection
func IsValidation(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Type {
	case ErrorTypeEmptyRequest, ErrorTypeTooLong, ErrorTypeReadOnlyViolation,
		ErrorTypeSuspiciousPattern, ErrorTypeBlockedKeyword, ErrorTypeBlockedResource:
		return true
	default:
		return false
	}
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
