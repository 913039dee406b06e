// Package domainerrors carries coded errors from the consent service and
// stores up to the HTTP layer, which maps each code to a status exactly once.
package domainerrors

import "errors"

// Code classifies a failure in service terms.
type Code string

const (
	// CodeBadRequest marks a request that could not be read at all
	// (malformed JSON, missing body, unparseable path id).
	CodeBadRequest Code = "bad_request"
	// CodeValidation marks a well-formed request violating a consent rule.
	CodeValidation Code = "validation_failed"
	CodeNotFound   Code = "not_found"
	CodeInternal   Code = "internal_error"
)

// Error is a coded failure. Details holds client-safe messages, one per
// violated rule; Message is only shown to clients for non-internal codes.
type Error struct {
	Code    Code
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code, so errors.Is(err, &Error{Code: c})
// works through wrapped chains.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// WithDetails builds an error listing each violated rule.
func WithDetails(code Code, msg string, details ...string) error {
	return &Error{Code: code, Message: msg, Details: details}
}

// Wrap attaches msg to err. A coded err keeps its code and details so that a
// store's not-found survives a service-level wrap.
func Wrap(err error, code Code, msg string) error {
	if existing, ok := as(err); ok {
		return &Error{Code: existing.Code, Message: msg, Details: existing.Details, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether the outermost coded error in err's chain has code.
func HasCode(err error, code Code) bool {
	e, ok := as(err)
	return ok && e.Code == code
}

// CodeOf returns the code of err, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	if e, ok := as(err); ok {
		return e.Code
	}
	return CodeInternal
}

// DetailsOf returns the client-safe details of err. A coded error without
// details falls back to its message.
func DetailsOf(err error) []string {
	e, ok := as(err)
	if !ok {
		return nil
	}
	if len(e.Details) > 0 {
		return e.Details
	}
	if e.Message != "" {
		return []string{e.Message}
	}
	return nil
}

func as(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
