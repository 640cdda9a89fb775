package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeShape      ErrorType = "SHAPE"
	ErrTypeManifest   ErrorType = "MANIFEST"
	ErrTypeRecordRead ErrorType = "RECORD_READ"
	ErrTypeModel      ErrorType = "MODEL"
	ErrTypeNetwork    ErrorType = "NETWORK"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeConfig     ErrorType = "CONFIG"
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

// NewShapeError reports invalid or inconsistent array dimensions.
func NewShapeError(format string, args ...interface{}) *AppError {
	return NewAppError(ErrTypeShape, fmt.Sprintf(format, args...), nil)
}

// NewManifestError reports a manifest that is missing or malformed.
// It is fatal to a whole conversion run.
func NewManifestError(message string, cause error) *AppError {
	return NewAppError(ErrTypeManifest, message, cause)
}

// NewRecordReadError reports a single waveform record that could not be read.
func NewRecordReadError(path string, cause error) *AppError {
	return NewAppError(ErrTypeRecordRead, fmt.Sprintf("failed to read record %q", path), cause).
		WithContext("path", path)
}

// NewModelError wraps a failure talking to a model backend. Errors returned by
// the model itself are passed through unchanged and never wrapped here.
func NewModelError(message string, cause error) *AppError {
	return NewAppError(ErrTypeModel, message, cause)
}

// NewNetworkError creates a network-related error
func NewNetworkError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNetwork, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// TypeOf returns the type of the outermost AppError in err's chain, or "" if
// there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether any AppError in err's chain has the given type.
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Type == errType {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// IsShapeError reports whether err is a ShapeError.
func IsShapeError(err error) bool { return IsType(err, ErrTypeShape) }

// IsManifestError reports whether err is a ManifestError.
func IsManifestError(err error) bool { return IsType(err, ErrTypeManifest) }

// IsRecordReadError reports whether err is a RecordReadError.
func IsRecordReadError(err error) bool { return IsType(err, ErrTypeRecordRead) }
