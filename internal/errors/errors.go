package errors

import (
	"fmt"
)

// DocError is the structured error type for docdex.
// It carries a stable code for classification plus optional context for
// logging and user presentation.
type DocError struct {
	// Code is the unique error code (e.g., "ERR_301_QUERY_PARSE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Query, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *DocError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *DocError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with DocError.
func (e *DocError) Is(target error) bool {
	if t, ok := target.(*DocError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *DocError) WithSuggestion(suggestion string) *DocError {
	e.Suggestion = suggestion
	return e
}

// New creates a new DocError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *DocError {
	return &DocError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Newf creates a new DocError with a formatted message.
func Newf(code string, format string, args ...any) *DocError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates a DocError from an existing error.
// The error's message becomes the DocError message.
func Wrap(code string, err error) *DocError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *DocError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// QueryParseError creates a query-parse error.
// These are recovered locally and surfaced to the caller as a structured
// payload rather than a failure.
func QueryParseError(message string, cause error) *DocError {
	return New(ErrCodeQueryParse, message, cause)
}

// IndexIOError creates an index I/O error.
func IndexIOError(message string, cause error) *DocError {
	return New(ErrCodeIndexIO, message, cause)
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if de, ok := err.(*DocError); ok {
		return de.Severity == SeverityFatal
	}
	return false
}

// IsWarning checks if an error is only a warning.
func IsWarning(err error) bool {
	if err == nil {
		return false
	}
	if de, ok := err.(*DocError); ok {
		return de.Severity == SeverityWarning
	}
	return false
}

// GetCode extracts the error code from a DocError.
// Returns empty string if not a DocError.
func GetCode(err error) string {
	if de, ok := err.(*DocError); ok {
		return de.Code
	}
	return ""
}

// GetCategory extracts the category from a DocError.
// Returns empty string if not a DocError.
func GetCategory(err error) Category {
	if de, ok := err.(*DocError); ok {
		return de.Category
	}
	return ""
}
