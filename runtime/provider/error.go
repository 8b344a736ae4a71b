package provider

import (
	"errors"
	"fmt"
)

// ErrorKind classifies provider failures into a small set of categories
// suitable for retry and UX decisions. RequestFailed and
// RateLimited are retryable; AuthFailed and InvalidResponse are not.
type ErrorKind string

const (
	ErrorKindRequestFailed   ErrorKind = "request_failed"
	ErrorKindRateLimited     ErrorKind = "rate_limited"
	ErrorKindAuthFailed      ErrorKind = "auth_failed"
	ErrorKindInvalidResponse ErrorKind = "invalid_response"
)

// Error describes a failure returned by a Provider. Classification is
// observable via IsRetryable so the operator can map it onto the closed
// OperatorError taxonomy without inspecting provider-specific details.
type Error struct {
	Provider  string
	Operation string
	Kind      ErrorKind
	Message   string
	Cause     error
}

func NewError(providerName, operation string, kind ErrorKind, message string, cause error) *Error {
	return &Error{Provider: providerName, Operation: operation, Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	op := e.Operation
	if op == "" {
		op = "complete"
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	return fmt.Sprintf("%s %s(%s): %s", e.Provider, e.Kind, op, msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// IsRetryable reports whether retrying the call without changing the
// request may succeed.
func (e *Error) IsRetryable() bool {
	return e.Kind == ErrorKindRequestFailed || e.Kind == ErrorKindRateLimited
}

// AsProviderError returns the first *Error in err's chain, if any.
func AsProviderError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
