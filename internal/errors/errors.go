package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies pipeline failures per the error taxonomy: schema errors
// fail fast at load, data-quality defects surface with the affected keys, and
// join gaps are recorded rather than raised.
type ErrorType string

const (
	ErrTypeSchema      ErrorType = "SCHEMA"
	ErrTypeParsing     ErrorType = "PARSING"
	ErrTypeDataQuality ErrorType = "DATA_QUALITY"
	ErrTypeConfig      ErrorType = "CONFIG"
)

// AppError is the application error carrying its classification and enough
// key/row context to diagnose the failing group.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to traverse the cause chain.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair identifying the affected row or group.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates an AppError of the given type.
func New(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewSchemaError reports a missing or mistyped input column, named so the
// caller can point at the offending file.
func NewSchemaError(message string, cause error) *AppError {
	return New(ErrTypeSchema, message, cause)
}

// NewParsingError reports an unreadable row or cell.
func NewParsingError(message string, cause error) *AppError {
	return New(ErrTypeParsing, message, cause)
}

// NewDataQualityError reports a defect in otherwise well-formed data, such as
// a reconciliation mismatch or too few complete cases to fit the imputer.
func NewDataQualityError(message string, cause error) *AppError {
	return New(ErrTypeDataQuality, message, cause)
}

// NewConfigError reports invalid configuration.
func NewConfigError(message string, cause error) *AppError {
	return New(ErrTypeConfig, message, cause)
}

// IsType reports whether err is, or wraps, an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}
