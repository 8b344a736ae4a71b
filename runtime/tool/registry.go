package tool

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/relayforge/agentrt/runtime/protocol"
)

// Registry maps tool names to Tools and holds two middleware chains: a
// global chain applied to every call, and a per-tool chain applied to a
// named tool. Tool names are unique within a Registry; registering a
// name that already exists overwrites the previous entry.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	global   []Middleware
	perTool  map[string][]Middleware
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		perTool: make(map[string][]Middleware),
	}
}

// Register adds (or overwrites) a tool under its own Name().
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Use appends a middleware to the global chain, applied to every tool call
// in registration order, before any per-tool middleware.
func (r *Registry) Use(mw Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = append(r.global, mw)
}

// UseFor appends a middleware to the chain scoped to a single tool name,
// applied after the global chain, in registration order.
func (r *Registry) UseFor(name string, mw Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.perTool[name] = append(r.perTool[name], mw)
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// IsEmpty reports whether the registry holds no tools.
func (r *Registry) IsEmpty() bool { return r.Len() == 0 }

// Iter calls fn for every registered tool. Iteration order is unspecified.
func (r *Registry) Iter(fn func(Tool)) {
	r.mu.RLock()
	snapshot := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		snapshot = append(snapshot, t)
	}
	r.mu.RUnlock()
	for _, t := range snapshot {
		fn(t)
	}
}

// Execute runs the middleware pipeline for a named tool call: look up the
// tool (ToolErrNotFound if absent), compose global-then-per-tool middleware
// around the tool invocation, and invoke the head.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage, callID protocol.ToolUseID) (Result, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	global := append([]Middleware(nil), r.global...)
	perTool := append([]Middleware(nil), r.perTool[name]...)
	r.mu.RUnlock()

	if !ok {
		return Result{}, protocol.NewToolError(protocol.ToolErrNotFound, "tool not found: "+name)
	}

	mws := append(global, perTool...)
	terminal := func(ctx context.Context, call Call) (Result, error) {
		out, err := t.Call(ctx, call.Input)
		if err != nil {
			te := protocol.ToolErrorFromError(err)
			return Result{IsError: true, ErrorMessage: te.Error()}, nil
		}
		return Result{Output: out}, nil
	}
	head := chain(mws, terminal)
	call := Call{ID: callID, Name: name, Input: input}
	return head.Run(ctx, call)
}
