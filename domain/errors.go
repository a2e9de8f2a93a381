package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across layers.
type ErrorCode string

const (
	ErrCodeInvalid    ErrorCode = "INVALID"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeFetch      ErrorCode = "FETCH_FAILED"
	ErrCodeRelocation ErrorCode = "RELOCATION_FAILED"
	ErrCodeLedger     ErrorCode = "LEDGER_WRITE_FAILED"
	ErrCodeInternal   ErrorCode = "INTERNAL"
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
	ErrMissingProductID = NewError(ErrCodeInvalid, "manifest entry is missing a product id")
	ErrNilController    = NewError(ErrCodeInvalid, "product requires a controller handle")
	ErrNoHandler        = NewError(ErrCodeInvalid, "event registration requires at least one handler")
	ErrFetchFailed      = NewError(ErrCodeFetch, "product info fetch failed")
	ErrProductNotFound  = NewError(ErrCodeNotFound, "product not found")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
