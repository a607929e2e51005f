package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried by AppError. Each code maps to exactly one HTTP status.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeCredentialMismatch = "CREDENTIAL_MISMATCH"
	CodeNotFound           = "NOT_FOUND"
	CodePolicyDenied       = "POLICY_DENIED"
	CodeInternal           = "INTERNAL_ERROR"
)

// UnauthorizedMessage is the only message ever returned for a rejected credential.
const UnauthorizedMessage = "Unauthorized!"

// InternalMessage replaces the underlying error text for 500 responses.
const InternalMessage = "Internal server error"

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Fields  []FieldError
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status code for the error's code.
func (e *AppError) Status() int {
	switch e.Code {
	case CodeValidation, CodePolicyDenied:
		return fiber.StatusNotAcceptable
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeCredentialMismatch:
		return fiber.StatusForbidden
	case CodeNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// Payload is the value placed in the envelope's error slot: the field list
// for multi-field validation failures, otherwise the message string.
func (e *AppError) Payload() any {
	if e.Code == CodeInternal {
		return InternalMessage
	}
	if len(e.Fields) > 0 {
		return e.Fields
	}
	return e.Message
}

// Predefined error constructors
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewFieldValidationError reports one or more invalid request fields.
func NewFieldValidationError(fields []FieldError) *AppError {
	msg := "Invalid request body"
	if len(fields) > 0 {
		msg = fields[0].Message
	}
	return &AppError{
		Code:    CodeValidation,
		Message: msg,
		Fields:  fields,
	}
}

func NewUnauthorizedError() *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: UnauthorizedMessage,
	}
}

func NewCredentialMismatchError(message string) *AppError {
	return &AppError{
		Code:    CodeCredentialMismatch,
		Message: message,
	}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: message,
	}
}

func NewPolicyDeniedError(message string) *AppError {
	return &AppError{
		Code:    CodePolicyDenied,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: InternalMessage,
		Err:     err,
	}
}

// AsAppError unwraps err into an AppError, wrapping unknown errors as internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError(err)
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
