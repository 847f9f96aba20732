package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeUnavailable  ErrorCode = "UNAVAILABLE"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrUserNotFound           = NewError(ErrCodeNotFound, "user not found")
	ErrTaskNotFound           = NewError(ErrCodeNotFound, "task not found")
	ErrTaskExists             = NewError(ErrCodeConflict, "task id already exists")
	ErrTaskAlreadyCompleted   = NewError(ErrCodeConflict, "task already completed")
	ErrCompletedTaskReadOnly  = NewError(ErrCodeConflict, "status of a completed task cannot change")
	ErrStatusRequiresComplete = NewError(ErrCodeInvalid, "use the complete operation to finish a task")
	ErrInvalidWindow          = NewError(ErrCodeInvalid, "window must be one of 7, 30, all")
	ErrInvalidPeriod          = NewError(ErrCodeInvalid, "period must be one of week, month, year")
	ErrInvalidCategory        = NewError(ErrCodeInvalid, "unknown task category")
	ErrInvalidStatus          = NewError(ErrCodeInvalid, "unknown task status")
	ErrNegativePoints         = NewError(ErrCodeInvalid, "points must not be negative")
	ErrTitleRequired          = NewError(ErrCodeInvalid, "title is required")
	ErrNotTaskOwner           = NewError(ErrCodeForbidden, "only the task owner can do this")
	ErrUnauthorized           = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrInvalidPayload         = NewError(ErrCodeInvalid, "invalid payload")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// StoreError classifies a failed store call. Domain errors pass through untouched,
// anything else is reported as the store being unavailable.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var dErr *Error
	if errors.As(err, &dErr) {
		return err
	}
	return WrapError(ErrCodeUnavailable, op, err)
}
