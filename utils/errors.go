package utils

import (
	"errors"
	"fmt"
)

// Error kinds returned by the order workflow. Match them with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrAuthorization = errors.New("not authorized")
	ErrValidation    = errors.New("validation failed")
	ErrConflict      = errors.New("conflict")
)

// AppError is a business error with a machine-readable code
type AppError struct {
	Kind    error
	Code    string
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Kind
}

// NewNotFoundError reports a missing order, revision, message or tailor
func NewNotFoundError(code, format string, args ...any) *AppError {
	return &AppError{Kind: ErrNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewAuthorizationError reports an actor without standing for the operation
func NewAuthorizationError(code, format string, args ...any) *AppError {
	return &AppError{Kind: ErrAuthorization, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError reports malformed input or a wrong-state precondition
func NewValidationError(code, format string, args ...any) *AppError {
	return &AppError{Kind: ErrValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewConflictError reports state that is already in the requested condition
// or was modified concurrently
func NewConflictError(code, format string, args ...any) *AppError {
	return &AppError{Kind: ErrConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsAppError unwraps err into an *AppError when possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
