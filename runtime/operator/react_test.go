package operator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relayforge/agentrt/runtime/environment"
	"github.com/relayforge/agentrt/runtime/hook"
	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/relayforge/agentrt/runtime/provider"
	"github.com/relayforge/agentrt/runtime/telemetry"
	"github.com/relayforge/agentrt/runtime/tool"
)

// scriptedProvider returns each queued response in order, one per Complete
// call, panicking if the loop asks for more turns than were scripted.
type scriptedProvider struct {
	responses []provider.Response
	calls     int
}

func (p *scriptedProvider) Complete(_ context.Context, _ provider.Request) (provider.Response, error) {
	if p.calls >= len(p.responses) {
		panic("scriptedProvider: ran out of scripted responses")
	}
	r := p.responses[p.calls]
	p.calls++
	return r, nil
}

func endTurn(text string) provider.Response {
	return provider.Response{
		Content:    []protocol.Block{protocol.TextBlock(text)},
		StopReason: provider.StopEndTurn,
		Usage:      provider.Usage{InputTokens: 10, OutputTokens: 5},
	}
}

func toolUse(id, name string, input string) provider.Response {
	return provider.Response{
		Content:    []protocol.Block{protocol.ToolUseBlockOf(protocol.ToolUseID(id), name, json.RawMessage(input))},
		StopReason: provider.StopToolUse,
		Usage:      provider.Usage{InputTokens: 10, OutputTokens: 5},
	}
}

func echoTool(t *testing.T) tool.Tool {
	t.Helper()
	return tool.NewFunc("echo", "echoes input", json.RawMessage(`{}`),
		func(_ context.Context, input json.RawMessage) (json.RawMessage, error) {
			return input, nil
		})
}

func newReAct(p provider.Provider, reg *tool.Registry) *ReAct {
	return &ReAct{
		Provider: p,
		Tools:    reg,
		Env:      environment.NewInProcess(reg),
		Hooks:    hook.NewRegistry(),
		Config:   Config{Model: "test-model", MaxTurns: 10},
		Logger:   telemetry.NewNoopLogger(),
		Metrics:  telemetry.NewNoopMetrics(),
	}
}

// S1: a single end_turn response completes immediately with ExitComplete.
func TestReAct_ImmediateCompletion(t *testing.T) {
	p := &scriptedProvider{responses: []provider.Response{endTurn("hello")}}
	o := newReAct(p, tool.New())

	out, err := o.Execute(context.Background(), protocol.OperatorInput{Message: protocol.TextContent("hi"), Trigger: protocol.TriggerUser}, nil)
	require.NoError(t, err)
	require.Equal(t, protocol.ExitComplete, out.ExitReason.Kind)
	require.Equal(t, 1, out.Metadata.TurnsUsed)
	require.Equal(t, "hello", out.Message.String())
}

// S2: a tool_use turn followed by an end_turn completes after invoking the
// real registered tool and folding its result back into context.
func TestReAct_ToolUseThenCompletion(t *testing.T) {
	reg := tool.New()
	reg.Register(echoTool(t))
	p := &scriptedProvider{responses: []provider.Response{
		toolUse("call-1", "echo", `{"msg":"hi"}`),
		endTurn("done"),
	}}
	o := newReAct(p, reg)

	out, err := o.Execute(context.Background(), protocol.OperatorInput{Message: protocol.TextContent("hi"), Trigger: protocol.TriggerUser}, nil)
	require.NoError(t, err)
	require.Equal(t, protocol.ExitComplete, out.ExitReason.Kind)
	require.Equal(t, 2, out.Metadata.TurnsUsed)
	require.Len(t, out.Metadata.ToolsCalled, 1)
	require.True(t, out.Metadata.ToolsCalled[0].Success)
}

// S3: a model-issued write_memory call is intercepted before the tool
// registry and produces a WriteMemory effect instead of a real tool call.
func TestReAct_EffectToolProducesEffect(t *testing.T) {
	p := &scriptedProvider{responses: []provider.Response{
		toolUse("call-1", "write_memory", `{"scope":"global","key":"k","value":"v"}`),
		endTurn("done"),
	}}
	o := newReAct(p, tool.New())

	out, err := o.Execute(context.Background(), protocol.OperatorInput{Message: protocol.TextContent("hi"), Trigger: protocol.TriggerUser}, nil)
	require.NoError(t, err)
	require.Len(t, out.Effects, 1)
	require.Equal(t, protocol.EffectWriteMemory, out.Effects[0].Kind)
	require.Len(t, out.Metadata.ToolsCalled, 1)
	require.True(t, out.Metadata.ToolsCalled[0].Success)
}

// S4: exhausting MaxTurns on a provider that never stops calling tools
// exits with ExitMaxTurns rather than looping forever.
func TestReAct_MaxTurnsExhausted(t *testing.T) {
	reg := tool.New()
	reg.Register(echoTool(t))
	responses := make([]provider.Response, 3)
	for i := range responses {
		responses[i] = toolUse("call", "echo", `{}`)
	}
	p := &scriptedProvider{responses: responses}
	o := newReAct(p, reg)
	o.Config.MaxTurns = 3

	out, err := o.Execute(context.Background(), protocol.OperatorInput{Message: protocol.TextContent("hi"), Trigger: protocol.TriggerUser}, nil)
	require.NoError(t, err)
	require.Equal(t, protocol.ExitMaxTurns, out.ExitReason.Kind)
	require.Equal(t, 3, out.Metadata.TurnsUsed)
}

// S5: a max_tokens stop reason is a terminal model error, not a completion.
func TestReAct_MaxTokensIsOperatorError(t *testing.T) {
	p := &scriptedProvider{responses: []provider.Response{
		{Content: []protocol.Block{protocol.TextBlock("cut off")}, StopReason: provider.StopMaxTokens},
	}}
	o := newReAct(p, tool.New())

	_, err := o.Execute(context.Background(), protocol.OperatorInput{Message: protocol.TextContent("hi"), Trigger: protocol.TriggerUser}, nil)
	require.Error(t, err)
	oe, ok := protocol.AsOperatorError(err)
	require.True(t, ok)
	require.Equal(t, protocol.ErrKindModel, oe.Kind)
}

// S6: a PreInference hook halt at the very first turn produces empty
// content rather than echoing the input back.
func TestReAct_PreInferenceHaltAtTurnOneYieldsEmptyContent(t *testing.T) {
	p := &scriptedProvider{responses: []provider.Response{endTurn("never reached")}}
	o := newReAct(p, tool.New())
	o.Hooks = hook.NewRegistry(hook.Func(func(_ context.Context, hctx protocol.HookContext) (protocol.HookAction, error) {
		if hctx.Point == protocol.PreInference {
			return protocol.Halt("budget policy"), nil
		}
		return protocol.Continue(), nil
	}))

	out, err := o.Execute(context.Background(), protocol.OperatorInput{Message: protocol.TextContent("hi"), Trigger: protocol.TriggerUser}, nil)
	require.NoError(t, err)
	require.Equal(t, protocol.ExitObserverHalt, out.ExitReason.Kind)
	require.True(t, out.Message.IsEmpty())
	require.Equal(t, 0, p.calls)
}

// content_filter is a terminal model error just like max_tokens.
func TestReAct_ContentFilterIsOperatorError(t *testing.T) {
	p := &scriptedProvider{responses: []provider.Response{
		{Content: []protocol.Block{protocol.TextBlock("blocked")}, StopReason: provider.StopContentFilter},
	}}
	o := newReAct(p, tool.New())

	_, err := o.Execute(context.Background(), protocol.OperatorInput{Message: protocol.TextContent("hi"), Trigger: protocol.TriggerUser}, nil)
	require.Error(t, err)
	oe, ok := protocol.AsOperatorError(err)
	require.True(t, ok)
	require.Equal(t, protocol.ErrKindModel, oe.Kind)
}
