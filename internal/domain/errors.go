package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedOp rejects operation codes outside {RETURN, RENEW}.
	ErrUnsupportedOp = errors.New("unsupported operation")

	// ErrRetriesExhausted is returned by the requester once every
	// configured send attempt has gone unanswered.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrTimeout marks a request/reply exchange that received no reply
	// within its bound.
	ErrTimeout = errors.New("timeout awaiting reply")
)

// ValidationError reports a request that is malformed before any
// transport attempt is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: field %s %s", e.Field, e.Reason)
}

// MissingField builds the validation error for an absent required field.
func MissingField(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "is required"}
}
