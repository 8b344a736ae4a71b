package tool

import (
	"context"
	"fmt"
)

// SchemaValidator is satisfied by schema-backed validators (see
// features/schema/jsonschema for a github.com/santhosh-tekuri/jsonschema/v6
// implementation). It is kept here, not imported from the adapter package,
// so the core tool package never depends on a concrete schema engine.
type SchemaValidator interface {
	Validate(schema []byte, instance []byte) error
}

// ValidateInput returns a Middleware that rejects calls whose input does not
// satisfy the tool's InputSchema, short-circuiting with an error Result
// instead of invoking the tool.
func ValidateInput(validator SchemaValidator, schemaOf func(toolName string) []byte) Middleware {
	return func(ctx context.Context, call Call, next Next) (Result, error) {
		schema := schemaOf(call.Name)
		if len(schema) > 0 {
			if err := validator.Validate(schema, call.Input); err != nil {
				return Result{IsError: true, ErrorMessage: fmt.Sprintf("invalid input: %s", err)}, nil
			}
		}
		return next.Run(ctx, call)
	}
}

// PermissionPolicy decides whether a call identified by name is allowed to
// execute. Implementations may consult allowlists, per-tenant policy
// engines, or static configuration.
type PermissionPolicy interface {
	Allow(ctx context.Context, toolName string) (bool, string)
}

// CheckPermission returns a Middleware backed by a pluggable PermissionPolicy.
func CheckPermission(policy PermissionPolicy) Middleware {
	return func(ctx context.Context, call Call, next Next) (Result, error) {
		allowed, reason := policy.Allow(ctx, call.Name)
		if !allowed {
			if reason == "" {
				reason = "not permitted"
			}
			return Result{IsError: true, ErrorMessage: "permission denied: " + reason}, nil
		}
		return next.Run(ctx, call)
	}
}

// TruncateOutput returns a Middleware that truncates oversized tool outputs
// before they enter the model's context window. maxBytes <= 0 disables
// truncation.
func TruncateOutput(maxBytes int) Middleware {
	return func(ctx context.Context, call Call, next Next) (Result, error) {
		res, err := next.Run(ctx, call)
		if err != nil || maxBytes <= 0 || len(res.Output) <= maxBytes {
			return res, err
		}
		truncated := make([]byte, maxBytes)
		copy(truncated, res.Output[:maxBytes])
		res.Output = truncated
		return res, err
	}
}
