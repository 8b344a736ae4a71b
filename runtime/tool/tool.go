// Package tool defines the object-safe Tool abstraction, a registry with a
// middleware pipeline, and the built-in middlewares. A
// Tool's schema is forwarded verbatim to model providers, so Tool
// implementations are responsible for producing self-describing JSON Schema.
package tool

import (
	"context"
	"encoding/json"

	"github.com/relayforge/agentrt/runtime/protocol"
)

// Tool is the object-safe tool abstraction invoked by the reasoning loop
// (via Registry.Execute) whenever the model issues a tool call that does not
// match a reserved effect-tool name.
type Tool interface {
	// Name is the tool's registered identifier. It must be stable: the
	// registry keys tools by name and a tool must not change its own name
	// across calls.
	Name() string

	// Description is forwarded to the model alongside InputSchema so it can
	// decide when to call this tool.
	Description() string

	// InputSchema returns a JSON Schema document describing the tool's input
	// shape. The schema is forwarded to the provider verbatim.
	InputSchema() json.RawMessage

	// Call executes the tool against the given input JSON and returns the
	// output JSON, or a *protocol.ToolError on failure. Call must honor
	// ctx cancellation; every tool call is a suspension point.
	Call(ctx context.Context, inputJSON json.RawMessage) (json.RawMessage, error)
}

// Call is the normalized shape of an in-flight tool invocation passed through
// the middleware chain.
type Call struct {
	ID    protocol.ToolUseID
	Name  string
	Input json.RawMessage
}

// Result is the normalized outcome of a tool invocation.
type Result struct {
	Output  json.RawMessage
	IsError bool
	// ErrorMessage is populated when IsError is true, independent of Output
	// (which may be nil on error).
	ErrorMessage string
}

// Func adapts a plain function into a Tool, mirroring the common case where a
// tool is a single closure plus static metadata (analogous to
// tools.ToolSpec + JSONCodec in the codegen'd teacher tools, but expressed
// directly rather than through generated codecs).
type Func struct {
	name        string
	description string
	schema      json.RawMessage
	fn          func(ctx context.Context, input json.RawMessage) (json.RawMessage, error)
}

// NewFunc constructs a Tool from a name, description, JSON Schema, and a
// handler function.
func NewFunc(name, description string, schema json.RawMessage, fn func(context.Context, json.RawMessage) (json.RawMessage, error)) *Func {
	return &Func{name: name, description: description, schema: schema, fn: fn}
}

func (f *Func) Name() string                 { return f.name }
func (f *Func) Description() string          { return f.description }
func (f *Func) InputSchema() json.RawMessage { return f.schema }
func (f *Func) Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	return f.fn(ctx, input)
}
