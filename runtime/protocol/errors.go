package protocol

import (
	"errors"
	"fmt"
)

// OperatorErrorKind is the closed set of error kinds an operator invocation
// may fail with. Exactly one of OperatorOutput or an OperatorError is
// ever produced by execute().
type OperatorErrorKind string

const (
	// ErrKindRetryable indicates a failure that may succeed on retry (network,
	// rate-limit). The operator never retries internally — the orchestrator
	// applies its retry policy.
	ErrKindRetryable OperatorErrorKind = "retryable"
	// ErrKindNonRetryable indicates auth/authz/invalid-input; retrying will not help.
	ErrKindNonRetryable OperatorErrorKind = "non_retryable"
	// ErrKindModel indicates a structurally or policy-terminal model response
	// (truncated output, content filter).
	ErrKindModel OperatorErrorKind = "model"
	// ErrKindContextAssembly indicates the operator could not read required
	// history or assemble a prompt.
	ErrKindContextAssembly OperatorErrorKind = "context_assembly"
	// ErrKindTimeout indicates the invocation hit its duration budget.
	ErrKindTimeout OperatorErrorKind = "timeout"
	// ErrKindCancelled indicates the cancellation token fired.
	ErrKindCancelled OperatorErrorKind = "cancelled"
)

// OperatorError is the closed error type returned by Operator.Execute. It
// preserves a cause chain (errors.Is/As) while remaining serializable enough
// to cross a process boundary as a (kind, reason) pair.
type OperatorError struct {
	Kind   OperatorErrorKind
	Reason string
	Cause  error
}

func (e *OperatorError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("operator: %s", e.Kind)
	}
	return fmt.Sprintf("operator: %s: %s", e.Kind, e.Reason)
}

func (e *OperatorError) Unwrap() error { return e.Cause }

// Retryable reports whether this error's kind is ErrKindRetryable.
func (e *OperatorError) Retryable() bool { return e.Kind == ErrKindRetryable }

func NewOperatorError(kind OperatorErrorKind, reason string, cause error) *OperatorError {
	return &OperatorError{Kind: kind, Reason: reason, Cause: cause}
}

// AsOperatorError returns the first OperatorError in err's chain, if any.
func AsOperatorError(err error) (*OperatorError, bool) {
	var oe *OperatorError
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}

// ToolErrorKind is the closed set of tool-failure kinds. Tool errors do
// not propagate out of the reasoning loop — they are captured as
// error-tagged ToolResult blocks so the model can observe and recover.
type ToolErrorKind string

const (
	ToolErrNotFound        ToolErrorKind = "not_found"
	ToolErrInvalidInput    ToolErrorKind = "invalid_input"
	ToolErrExecutionFailed ToolErrorKind = "execution_failed"
)

// ToolError is a structured tool failure, chainable via Cause so
// errors.Is/As continue to work across tool/agent-as-tool hops.
type ToolError struct {
	Kind    ToolErrorKind
	Message string
	Cause   *ToolError
}

func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *ToolError) Unwrap() error {
	if e == nil || e.Cause == nil {
		return nil
	}
	return e.Cause
}

func NewToolError(kind ToolErrorKind, message string) *ToolError {
	if message == "" {
		message = string(kind)
	}
	return &ToolError{Kind: kind, Message: message}
}

// AsToolError returns the first *ToolError in err's chain, if any.
func AsToolError(err error) (*ToolError, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// ToolErrorFromError converts an arbitrary error into a ToolError chain,
// preserving an existing ToolError found anywhere in the chain.
func ToolErrorFromError(err error) *ToolError {
	if err == nil {
		return nil
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{
		Kind:    ToolErrExecutionFailed,
		Message: err.Error(),
		Cause:   ToolErrorFromError(errors.Unwrap(err)),
	}
}
