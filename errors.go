// Package warptile structured error types for configuration validation
package warptile

import (
	"fmt"
)

// ErrorType represents categories of errors
type ErrorType int

const (
	// Configuration errors: shape/type/alignment incompatibilities that the
	// original design surfaces at compile time. Here they are reported once,
	// at construction, and never on the access path.
	ErrTypeConfig ErrorType = iota
	// Invalid argument errors
	ErrTypeInvalidArg
	// Execution errors
	ErrTypeExecution
	// Not implemented errors
	ErrTypeNotImplemented
)

// TileError represents a structured error with context
type TileError struct {
	Type    ErrorType
	Op      string // Operation that failed
	Message string // Human-readable message
	Err     error  // Underlying error if any
}

// Error implements the error interface
func (e *TileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("warptile %s error in %s: %s (caused by: %v)",
			e.Type.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("warptile %s error in %s: %s",
		e.Type.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *TileError) Unwrap() error {
	return e.Err
}

// String returns the error type as a string
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConfig:
		return "Configuration"
	case ErrTypeInvalidArg:
		return "InvalidArgument"
	case ErrTypeExecution:
		return "Execution"
	case ErrTypeNotImplemented:
		return "NotImplemented"
	default:
		return "Unknown"
	}
}

// NewConfigError creates a configuration error
func NewConfigError(op, format string, args ...interface{}) *TileError {
	return &TileError{
		Type:    ErrTypeConfig,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewInvalidArgError creates an invalid argument error
func NewInvalidArgError(op, format string, args ...interface{}) *TileError {
	return &TileError{
		Type:    ErrTypeInvalidArg,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewExecutionError creates an execution error with an underlying cause
func NewExecutionError(op, message string, err error) *TileError {
	return &TileError{
		Type:    ErrTypeExecution,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
