// Package errors defines the typed error taxonomy used across LoveBot.
// Every error carries a stable code so the orchestrator can log failures uniformly.
package errors

import (
	"errors"
	"fmt"
)

// Standard error codes for the application.
const (
	CodeUnknown    = "UNKNOWN"
	CodeStorage    = "STORAGE"
	CodeTransport  = "TRANSPORT"
	CodeAnalysis   = "ANALYSIS"
	CodeValidation = "VALIDATION"
	CodeConfig     = "CONFIG"
)

// ApplicationError is the interface that all our custom errors implement.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// Error represents a basic application error.
type Error struct {
	code    string
	message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

func (e *Error) Code() string {
	return e.code
}

func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the code of the first ApplicationError in err's chain,
// or CodeUnknown if there is none.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

// StorageError wraps a failed persistence operation.
type StorageError struct {
	base Error
}

func (e *StorageError) Error() string {
	return e.base.Error()
}

func (e *StorageError) Code() string {
	return e.base.Code()
}

func (e *StorageError) Unwrap() error {
	return e.base.Unwrap()
}

// NewStorageError creates a StorageError.
func NewStorageError(message string, cause error) error {
	return &StorageError{
		base: Error{
			code:    CodeStorage,
			message: message,
			err:     cause,
		},
	}
}

// TransportError wraps a failed send or receive on a messaging channel.
type TransportError struct {
	base Error
}

func (e *TransportError) Error() string {
	return e.base.Error()
}

func (e *TransportError) Code() string {
	return e.base.Code()
}

func (e *TransportError) Unwrap() error {
	return e.base.Unwrap()
}

// NewTransportError creates a TransportError.
func NewTransportError(message string, cause error) error {
	return &TransportError{
		base: Error{
			code:    CodeTransport,
			message: message,
			err:     cause,
		},
	}
}

// AnalysisError signals that an analyzer could not produce a result.
type AnalysisError struct {
	base Error
}

func (e *AnalysisError) Error() string {
	return e.base.Error()
}

func (e *AnalysisError) Code() string {
	return e.base.Code()
}

func (e *AnalysisError) Unwrap() error {
	return e.base.Unwrap()
}

// NewAnalysisError creates an AnalysisError.
func NewAnalysisError(message string, cause error) error {
	return &AnalysisError{
		base: Error{
			code:    CodeAnalysis,
			message: message,
			err:     cause,
		},
	}
}

type ValidationError struct {
	base Error
}

func (e *ValidationError) Error() string {
	return e.base.Error()
}

func (e *ValidationError) Code() string {
	return e.base.Code()
}

func (e *ValidationError) Unwrap() error {
	return e.base.Unwrap()
}

func NewValidationError(message string, cause error) error {
	return &ValidationError{
		base: Error{
			code:    CodeValidation,
			message: message,
			err:     cause,
		},
	}
}

type ConfigError struct {
	base Error
}

func (e *ConfigError) Error() string {
	return e.base.Error()
}

func (e *ConfigError) Code() string {
	return e.base.Code()
}

func (e *ConfigError) Unwrap() error {
	return e.base.Unwrap()
}

func NewConfigError(message string, cause error) error {
	return &ConfigError{
		base: Error{
			code:    CodeConfig,
			message: message,
			err:     cause,
		},
	}
}
