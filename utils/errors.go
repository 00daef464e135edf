package utils

import (
	"fmt"
	"net/http"
)

// AppError represents an application error with an HTTP status code.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// DomainError is a caller-fixable state precondition failure, e.g. approving
// an order that is not pending. Surfaces as 400.
func DomainError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message, nil)
}

// NotFoundError creates a 404 Not Found error
func NotFoundError(message string) *AppError {
	return NewAppError(http.StatusNotFound, message, nil)
}

// ValidationError carries per-field messages for caller-fixable input
// problems. No partial state is ever committed when one is returned.
type ValidationError struct {
	Fields map[string]string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return "Validation failed"
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// GatewayError means a payment provider was unreachable, misconfigured or
// answered with a failure state.
type GatewayError struct {
	Provider string
	Message  string
	Err      error
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Unwrap implements the unwrap interface
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError creates a GatewayError for a provider.
func NewGatewayError(provider, message string, err error) *GatewayError {
	return &GatewayError{Provider: provider, Message: message, Err: err}
}

// SignatureError means a webhook or redirect carried an invalid or missing
// signature; the payload must not be trusted and no state changes.
type SignatureError struct {
	Provider string
}

// Error implements the error interface
func (e *SignatureError) Error() string {
	return fmt.Sprintf("%s: invalid signature", e.Provider)
}

// IsValidationError checks if an error is a field validation error
func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

// IsGatewayError checks if an error is a gateway error
func IsGatewayError(err error) bool {
	_, ok := err.(*GatewayError)
	return ok
}

// WrapError wraps an error with additional context
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
