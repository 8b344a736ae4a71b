package environment

import (
	"context"

	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/relayforge/agentrt/runtime/tool"
)

// InProcess runs tool calls directly against a tool.Registry in the calling
// goroutine, with no sandboxing. It is the default Environment and the one
// every operator test exercises against. Resolved credentials are not
// injected here since in-process tools receive no process/env isolation to
// inject into; sandboxed environments (features/environment/plugin) are
// where ResolvedCredential actually gets used.
type InProcess struct {
	Registry *tool.Registry
}

func NewInProcess(r *tool.Registry) *InProcess {
	return &InProcess{Registry: r}
}

func (e *InProcess) Execute(ctx context.Context, toolName string, input []byte, _ []ResolvedCredential) ([]byte, error) {
	result, err := e.Registry.Execute(ctx, toolName, input, protocol.ToolUseID(""))
	if err != nil {
		return nil, err
	}
	if result.IsError {
		return nil, protocol.NewToolError(protocol.ToolErrExecutionFailed, result.ErrorMessage)
	}
	return result.Output, nil
}
