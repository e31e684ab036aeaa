// Package apperr defines the closed error taxonomy shared by every mutating
// operation, and its mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes. These are wire-visible and stable.
const (
	CodeInvalid            = "invalid"
	CodeNotFound           = "not_found"
	CodeConflict           = "conflict"
	CodePreconditionFailed = "precondition_failed"
	CodeInsufficientStock  = "insufficient_stock"
	CodeMissingIdempotency = "missing_idempotency"
)

// Error is a business failure produced inside a state-machine operation.
// It never represents an unexpected storage failure; those are plain wrapped
// errors that abort the transaction and surface as a generic 500.
type Error struct {
	Code    string
	Message string
	// Details optionally carries structured context such as the list of
	// short materials or unready task titles.
	Details any
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// New builds an Error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds an Error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails attaches structured context and returns the same error.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// From unwraps err into an *Error if one is in its chain.
func From(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// HTTPStatus maps an error code to its HTTP status.
func HTTPStatus(code string) int {
	switch code {
	case CodeInvalid, CodePreconditionFailed, CodeInsufficientStock:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeMissingIdempotency:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
