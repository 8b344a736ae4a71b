// Package hook implements the lifecycle hook machinery: the Hook
// contract, an ordered Registry that dispatches to hooks in order and folds
// their results, and a reference set of built-in safety/budget hooks.
package hook

import (
	"context"

	"github.com/relayforge/agentrt/runtime/protocol"
)

// Hook observes or intervenes at a HookPoint during the reasoning loop.
type Hook interface {
	OnEvent(ctx context.Context, hctx protocol.HookContext) (protocol.HookAction, error)
}

// Func adapts a plain function into a Hook.
type Func func(ctx context.Context, hctx protocol.HookContext) (protocol.HookAction, error)

func (f Func) OnEvent(ctx context.Context, hctx protocol.HookContext) (protocol.HookAction, error) {
	return f(ctx, hctx)
}

// Registry holds an ordered list of hooks and dispatches a HookContext to
// each in turn, folding the result: Continue advances to the next hook;
// anything else (Halt, SkipTool, ModifyToolInput, ModifyToolOutput)
// short-circuits and is returned immediately. A Registry with no
// hooks always returns Continue.
type Registry struct {
	hooks []Hook
}

// NewRegistry constructs a Registry from an ordered hook list.
func NewRegistry(hooks ...Hook) *Registry {
	return &Registry{hooks: hooks}
}

// Register appends a hook to the end of the dispatch order.
func (r *Registry) Register(h Hook) {
	r.hooks = append(r.hooks, h)
}

// Len reports how many hooks are registered.
func (r *Registry) Len() int { return len(r.hooks) }

// Dispatch invokes each hook in registration order, stopping at the first
// non-Continue action or the first error. A hook error surfaces as an
// operator error — a buggy hook must not produce a silent wrong answer.
func (r *Registry) Dispatch(ctx context.Context, hctx protocol.HookContext) (protocol.HookAction, error) {
	for _, h := range r.hooks {
		action, err := h.OnEvent(ctx, hctx)
		if err != nil {
			return protocol.HookAction{}, err
		}
		if action.Kind != protocol.ActionContinue {
			return action, nil
		}
	}
	return protocol.Continue(), nil
}
