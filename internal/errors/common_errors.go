package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeConfig      ErrorType = "CONFIG"
	ErrTypeFetch       ErrorType = "FETCH"
	ErrTypeParsing     ErrorType = "PARSING"
	ErrTypeDataQuality ErrorType = "DATA_QUALITY"
	ErrTypeWrite       ErrorType = "WRITE"
	ErrTypeValidation  ErrorType = "VALIDATION"
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

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewConfigError creates a configuration error. Configuration errors are
// fatal and are reported before any network call.
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewFetchError creates an upstream retrieval error
func NewFetchError(message string, cause error) *AppError {
	return NewAppError(ErrTypeFetch, message, cause)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewDataQualityError creates a data-quality error
func NewDataQualityError(message string, cause error) *AppError {
	return NewAppError(ErrTypeDataQuality, message, cause)
}

// NewWriteError creates an error for an artifact that could not be written.
// The attempted path is recorded in the context.
func NewWriteError(path string, cause error) *AppError {
	return NewAppError(ErrTypeWrite, fmt.Sprintf("failed to write %s", path), cause).
		WithContext("path", path)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or ""
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsConfigError reports whether err is a configuration error
func IsConfigError(err error) bool {
	return hasType(err, ErrTypeConfig)
}

// IsFetchError reports whether err is an upstream retrieval error
func IsFetchError(err error) bool {
	return hasType(err, ErrTypeFetch)
}

// IsWriteError reports whether err is an artifact write error
func IsWriteError(err error) bool {
	return hasType(err, ErrTypeWrite)
}

// hasType walks the whole chain, so a PARSING error wrapped in a FETCH
// error matches both types.
func hasType(err error, t ErrorType) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Type == t {
			return true
		}
		err = appErr.Cause
	}
	return false
}
