// Command demo wires the in-memory pieces of the runtime together: an
// echo tool, a scripted provider standing in for a real model, the ReAct
// operator, and an orchestrator backed by an in-memory state store. It
// exists to exercise the wiring end to end without external services.
package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/relayforge/agentrt/runtime/environment"
	"github.com/relayforge/agentrt/runtime/hook"
	"github.com/relayforge/agentrt/runtime/operator"
	"github.com/relayforge/agentrt/runtime/orchestrator"
	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/relayforge/agentrt/runtime/provider"
	"github.com/relayforge/agentrt/runtime/state/inmem"
	"github.com/relayforge/agentrt/runtime/telemetry"
	"github.com/relayforge/agentrt/runtime/tool"
)

// echoProvider is a stand-in for a real model: it answers any user message
// by calling the "echo" tool once, then finishes on the following turn.
type echoProvider struct{ turn int }

func (p *echoProvider) Complete(_ context.Context, req provider.Request) (provider.Response, error) {
	p.turn++
	if p.turn == 1 {
		last := req.Messages[len(req.Messages)-1]
		input, _ := json.Marshal(map[string]string{"text": last.Content.String()})
		return provider.Response{
			Content:    []protocol.Block{protocol.ToolUseBlockOf("call-1", "echo", input)},
			StopReason: provider.StopToolUse,
			Usage:      provider.Usage{InputTokens: 12, OutputTokens: 6},
		}, nil
	}
	return provider.Response{
		Content:    []protocol.Block{protocol.TextBlock("you said: " + lastToolResult(req.Messages))},
		StopReason: provider.StopEndTurn,
		Usage:      provider.Usage{InputTokens: 12, OutputTokens: 6},
	}, nil
}

func lastToolResult(messages []protocol.Message) string {
	last := messages[len(messages)-1]
	for _, b := range last.Content.Blocks {
		if b.Kind == protocol.BlockToolResult && b.ToolResult != nil {
			return b.ToolResult.Content
		}
	}
	return ""
}

func echoTool() tool.Tool {
	return tool.NewFunc("echo", "echoes the input text back", json.RawMessage(`{
		"type":"object","properties":{"text":{"type":"string"}},"required":["text"]
	}`), func(_ context.Context, input json.RawMessage) (json.RawMessage, error) {
		return input, nil
	})
}

func main() {
	ctx := context.Background()

	registry := tool.New()
	registry.Register(echoTool())

	logger := telemetry.NewNoopLogger()

	react := &operator.ReAct{
		Provider: &echoProvider{},
		Tools:    registry,
		Env:      environment.NewInProcess(registry),
		Hooks:    hook.NewRegistry(),
		Config:   operator.Config{Model: "demo-model", MaxTurns: 5},
		Logger:   logger,
		Metrics:  telemetry.NewNoopMetrics(),
	}

	orch := orchestrator.New(inmem.New(), orchestrator.DefaultRetryPolicy(), logger)
	orch.Register("demo-agent", react)

	out, err := orch.Dispatch(ctx, "demo-agent", protocol.OperatorInput{
		Message: protocol.TextContent("Say hi"),
		Trigger: protocol.TriggerUser,
	}, nil)
	if err != nil {
		panic(err)
	}

	fmt.Println("exit reason:", out.ExitReason.Kind)
	fmt.Println("turns used:", out.Metadata.TurnsUsed)
	fmt.Println("assistant:", out.Message.String())
}
