// Package apperr defines the error taxonomy shared across layers.
package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound marks lookups for records that do not exist.
var ErrNotFound = errors.New("not found")

// ValidationError carries the ordered validation messages for a rejected
// input. It is recoverable: nothing is persisted and callers surface the
// first message.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return "validation failed"
	}
	return e.Messages[0]
}

// NewValidation wraps a message list in a ValidationError.
func NewValidation(messages []string) error {
	return &ValidationError{Messages: messages}
}

// AsValidation unwraps a ValidationError from err, if present.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// ParseError marks a malformed import payload. The whole import aborts and
// the underlying message is surfaced.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParse reports whether err is (or wraps) a ParseError.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
