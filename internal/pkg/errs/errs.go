/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go error interface
and carries a code, a player-facing message, and the HTTP exchange that produced it.
*/
package errs

import (
	"errors"
	"fmt"
	"strings"

	"mmoclient/internal/pkg/logx"
)

// CustomError is the custom error structure used throughout the application.
type CustomError struct {
	// Code is the error code (see constants definition).
	Code int

	// Message is the player-facing error description.
	Message string

	// Detail is the formatting argument substituted into the message template,
	// e.g. "name exists" for ErrConflict or the field path for ErrDecodeWarning.
	Detail string

	// Status is the HTTP status code. For backend codes it is the status written
	// on the wire; for gateway codes it is the status the backend answered with
	// (0 when no response was received).
	Status int

	// Body is the raw response body attached to ErrRequestFailed.
	Body string

	cause error
}

// Error implements the standard Go error interface.
func (e *CustomError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error Code %d", e.Code)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// Unwrap exposes the underlying cause (e.g. a net.Error for ErrTransportFailure).
func (e *CustomError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a CustomError with the same code, so callers can
// write errors.Is(err, errs.NewError(errs.ErrUnauthenticated)).
func (e *CustomError) Is(target error) bool {
	var t *CustomError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithResponse records the HTTP status and body the error was derived from.
func (e *CustomError) WithResponse(status int, body string) *CustomError {
	e.Status = status
	e.Body = body
	return e
}

// WithCause attaches the underlying error.
func (e *CustomError) WithCause(err error) *CustomError {
	e.cause = err
	return e
}

// NewError constructs and returns a new *CustomError instance based on a predefined error code.
// The optional details parameter supplies printf-style arguments for message templates
// containing a verb. If an unknown code is provided, it defaults to returning ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &unknownErr
	}

	customErr := templateErr

	if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
			customErr.Detail = fmt.Sprint(details[0])
		} else if cause, isErr := details[0].(error); isErr {
			customErr.cause = cause
		} else {
			logx.Warn(
				"Details provided for error, but message template has no formatting placeholders. Details ignored.",
				"code", code,
			)
		}
	}

	return &customErr
}

// CodeOf returns the code of the first CustomError in err's chain, or 0.
func CodeOf(err error) int {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Code
	}
	return 0
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code int) bool {
	return err != nil && CodeOf(err) == code
}

// As extracts the CustomError from err's chain.
func As(err error) (*CustomError, bool) {
	var customErr *CustomError
	ok := errors.As(err, &customErr)
	return customErr, ok
}
