// Package errors defines the application error taxonomy and its reporting.
package errors

import (
	"errors"
	"fmt"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Error codes, one per failure family.
const (
	CodeValidation  = "E100"
	CodeStorage     = "E200"
	CodeExternalAPI = "E300"
	CodeState       = "E400"
	CodeTransport   = "E500"
	CodeInternal    = "E900"
)

type AppError struct {
	Code     string
	Message  string
	Severity Severity
	cause    error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// CodeOf returns the AppError code carried by err, or CodeInternal.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Code
	}
	return CodeInternal
}

// SeverityOf returns the AppError severity carried by err, or SeverityHigh.
func SeverityOf(err error) Severity {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Severity
	}
	return SeverityHigh
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:     CodeValidation,
		Message:  msg,
		Severity: SeverityLow,
	}
}

func NewStorageError(op string, cause error) *AppError {
	return &AppError{
		Code:     CodeStorage,
		Message:  fmt.Sprintf("storage error: %s", op),
		Severity: SeverityHigh,
		cause:    cause,
	}
}

func NewExternalAPIError(apiName string, cause error) *AppError {
	return &AppError{
		Code:     CodeExternalAPI,
		Message:  fmt.Sprintf("external API error: %s", apiName),
		Severity: SeverityMedium,
		cause:    cause,
	}
}

// NewStateError reports an event that cannot be handled in the conversation's current state.
func NewStateError(msg string, cause error) *AppError {
	return &AppError{
		Code:     CodeState,
		Message:  msg,
		Severity: SeverityMedium,
		cause:    cause,
	}
}

func NewTransportError(op string, cause error) *AppError {
	return &AppError{
		Code:     CodeTransport,
		Message:  fmt.Sprintf("chat transport error: %s", op),
		Severity: SeverityMedium,
		cause:    cause,
	}
}

func NewInternalError(cause error) *AppError {
	return &AppError{
		Code:     CodeInternal,
		Message:  "internal error",
		Severity: SeverityCritical,
		cause:    cause,
	}
}
