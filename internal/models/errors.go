package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies domain errors so the HTTP layer can map them to status codes
type ErrorKind string

const (
	ErrorKindValidation    ErrorKind = "validation_error"
	ErrorKindConflict      ErrorKind = "conflict"
	ErrorKindAuthorization ErrorKind = "forbidden"
	ErrorKindNotFound      ErrorKind = "not_found"
	ErrorKindState         ErrorKind = "invalid_state"
)

// AppError is a business error carrying a client-safe message
type AppError struct {
	Kind    ErrorKind
	Message string
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

func NewValidationError(message string) *AppError {
	return &AppError{Kind: ErrorKindValidation, Message: message}
}

func NewConflictError(message string) *AppError {
	return &AppError{Kind: ErrorKindConflict, Message: message}
}

func NewAuthorizationError(message string) *AppError {
	return &AppError{Kind: ErrorKindAuthorization, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: ErrorKindNotFound, Message: message}
}

func NewStateError(message string) *AppError {
	return &AppError{Kind: ErrorKindState, Message: message}
}

// KindOf returns the kind of an AppError anywhere in the chain, or "" for unexpected errors
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether err is an AppError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
