/**
 * Structured error types for the document processing core.
 *
 * Every failure that crosses the processor boundary is converted to a
 * ProcessingResult with an error message; these types exist so internal
 * callers can still branch on the failure class.
 */

package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a processing failure.
type ErrorCode string

const (
	// ErrorConfiguration marks invalid or inconsistent processing options.
	// Raised before any engine work, never retried.
	ErrorConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// ErrorUnsupportedFormat marks a file extension outside the supported set.
	ErrorUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"

	// ErrorEngine marks a failure inside the external conversion engine.
	ErrorEngine ErrorCode = "ENGINE_ERROR"

	// ErrorResource marks temporary storage, download, or model-cache failures.
	ErrorResource ErrorCode = "RESOURCE_ERROR"
)

// ProcessingError is a structured error with a taxonomy code.
type ProcessingError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Cause   error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// NewConfigurationError reports an invalid option combination.
func NewConfigurationError(format string, args ...interface{}) *ProcessingError {
	return &ProcessingError{
		Code:    ErrorConfiguration,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewUnsupportedFormatError reports a file extension outside the supported set.
func NewUnsupportedFormatError(ext string) *ProcessingError {
	return &ProcessingError{
		Code:    ErrorUnsupportedFormat,
		Message: fmt.Sprintf("unsupported file format: %q", ext),
		Details: map[string]interface{}{"extension": ext},
	}
}

// NewEngineError wraps a failure reported by the conversion engine.
func NewEngineError(message string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:    ErrorEngine,
		Message: message,
		Cause:   cause,
	}
}

// NewResourceError wraps a storage or transfer failure.
func NewResourceError(message string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:    ErrorResource,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf returns the taxonomy code of err, or "" when err carries none.
func CodeOf(err error) ErrorCode {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	return CodeOf(err) == ErrorConfiguration
}
