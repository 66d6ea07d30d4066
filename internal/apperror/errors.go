package apperror

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures surfaced by the queue engine.
type ErrorType string

const (
	// TypeValidation indicates malformed input
	TypeValidation ErrorType = "VALIDATION"

	// TypeDuplicateBooking indicates the patient already holds an active token
	TypeDuplicateBooking ErrorType = "DUPLICATE_BOOKING"

	// TypeInvalidTokenState indicates an operation on a terminal or non-member token
	TypeInvalidTokenState ErrorType = "INVALID_TOKEN_STATE"

	// TypeConflict indicates optimistic concurrency retries were exhausted
	TypeConflict ErrorType = "CONFLICT"

	// TypeNotFound indicates an unknown queue or token
	TypeNotFound ErrorType = "NOT_FOUND"

	// TypeDependencyFailure indicates the store or another collaborator is unreachable
	TypeDependencyFailure ErrorType = "DEPENDENCY_FAILURE"

	// TypeForbidden indicates the caller may not act on the resource
	TypeForbidden ErrorType = "FORBIDDEN"
)

// AppError is the single error shape returned across package boundaries.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error

	// TokenID is set for DUPLICATE_BOOKING (the existing token) and
	// INVALID_TOKEN_STATE (the offending token).
	TokenID string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may repeat the request unchanged.
func (e *AppError) Retryable() bool {
	return e.Type == TypeConflict || e.Type == TypeDependencyFailure
}

func NewValidation(format string, args ...any) *AppError {
	return &AppError{Type: TypeValidation, Message: fmt.Sprintf(format, args...)}
}

func NewDuplicateBooking(existingTokenID string) *AppError {
	return &AppError{
		Type:    TypeDuplicateBooking,
		Message: "an active booking already exists for this queue",
		TokenID: existingTokenID,
	}
}

func NewInvalidTokenState(tokenID, format string, args ...any) *AppError {
	return &AppError{Type: TypeInvalidTokenState, Message: fmt.Sprintf(format, args...), TokenID: tokenID}
}

func NewConflict(message string, err error) *AppError {
	return &AppError{Type: TypeConflict, Message: message, Err: err}
}

func NewNotFound(format string, args ...any) *AppError {
	return &AppError{Type: TypeNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewDependencyFailure(message string, err error) *AppError {
	return &AppError{Type: TypeDependencyFailure, Message: message, Err: err}
}

func NewForbidden(message string) *AppError {
	return &AppError{Type: TypeForbidden, Message: message}
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// Is reports whether err carries an AppError of type t.
func Is(err error, t ErrorType) bool {
	return TypeOf(err) == t
}
