package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_Constants(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		expected string
	}{
		{name: "config error type", errType: ErrTypeConfig, expected: "CONFIG"},
		{name: "fetch error type", errType: ErrTypeFetch, expected: "FETCH"},
		{name: "parsing error type", errType: ErrTypeParsing, expected: "PARSING"},
		{name: "data quality error type", errType: ErrTypeDataQuality, expected: "DATA_QUALITY"},
		{name: "write error type", errType: ErrTypeWrite, expected: "WRITE"},
		{name: "validation error type", errType: ErrTypeValidation, expected: "VALIDATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		appError    *AppError
		wantMessage string
	}{
		{
			name:        "error without cause",
			appError:    NewConfigError("zip code 5480 is not 5 digits", nil),
			wantMessage: "[CONFIG] zip code 5480 is not 5 digits",
		},
		{
			name:        "error with cause",
			appError:    NewFetchError("zip 54880", fmt.Errorf("connection refused")),
			wantMessage: "[FETCH] zip 54880: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.appError.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewWriteError("/tmp/out.xlsx", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "/tmp/out.xlsx", err.Context["path"])
}

func TestAppError_WithContext(t *testing.T) {
	err := &AppError{Type: ErrTypeFetch, Message: "boom"}
	err.WithContext("zip", "54880").WithContext("attempts", 3)

	require.NotNil(t, err.Context)
	assert.Equal(t, "54880", err.Context["zip"])
	assert.Equal(t, 3, err.Context["attempts"])
}

func TestTypePredicates(t *testing.T) {
	parsing := NewParsingError("header row missing", nil)
	fetch := NewFetchError("zip 55807", parsing)
	wrapped := fmt.Errorf("run failed: %w", fetch)

	assert.True(t, IsFetchError(wrapped))
	assert.True(t, hasType(wrapped, ErrTypeParsing))
	assert.False(t, IsConfigError(wrapped))
	assert.False(t, IsWriteError(wrapped))
	assert.Equal(t, ErrTypeFetch, TypeOf(wrapped))

	assert.True(t, IsConfigError(NewConfigError("bad year", nil)))
	assert.True(t, IsWriteError(NewWriteError("x.xlsx", nil)))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
	assert.False(t, IsFetchError(nil))
}
