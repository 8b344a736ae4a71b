package hook

import (
	"context"
	"errors"
	"testing"

	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/stretchr/testify/require"
)

func TestDispatchEmptyRegistryContinues(t *testing.T) {
	r := NewRegistry()
	action, err := r.Dispatch(context.Background(), protocol.HookContext{Point: protocol.PreInference})
	require.NoError(t, err)
	require.Equal(t, protocol.ActionContinue, action.Kind)
}

func TestDispatchStopsAtFirstNonContinue(t *testing.T) {
	calls := 0
	first := Func(func(context.Context, protocol.HookContext) (protocol.HookAction, error) {
		calls++
		return protocol.Halt("stop"), nil
	})
	second := Func(func(context.Context, protocol.HookContext) (protocol.HookAction, error) {
		calls++
		return protocol.Continue(), nil
	})
	r := NewRegistry(first, second)
	action, err := r.Dispatch(context.Background(), protocol.HookContext{})
	require.NoError(t, err)
	require.Equal(t, protocol.ActionHalt, action.Kind)
	require.Equal(t, 1, calls)
}

func TestDispatchPropagatesHookError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry(Func(func(context.Context, protocol.HookContext) (protocol.HookAction, error) {
		return protocol.HookAction{}, boom
	}))
	_, err := r.Dispatch(context.Background(), protocol.HookContext{})
	require.ErrorIs(t, err, boom)
}

func TestCostCapHaltsOverLimit(t *testing.T) {
	cap := CostCap{Limit: protocol.DecimalFromFloat(1.0)}
	action, err := cap.OnEvent(context.Background(), protocol.HookContext{
		Point: protocol.ExitCheck, Cost: protocol.DecimalFromFloat(1.5),
	})
	require.NoError(t, err)
	require.Equal(t, protocol.ActionHalt, action.Kind)
}

func TestCostCapContinuesUnderLimit(t *testing.T) {
	cap := CostCap{Limit: protocol.DecimalFromFloat(1.0)}
	action, err := cap.OnEvent(context.Background(), protocol.HookContext{
		Point: protocol.ExitCheck, Cost: protocol.DecimalFromFloat(0.5),
	})
	require.NoError(t, err)
	require.Equal(t, protocol.ActionContinue, action.Kind)
}

func TestOutputRedactorMasksMatch(t *testing.T) {
	r := NewOutputRedactor(`sk-[a-zA-Z0-9]+`)
	action, err := r.OnEvent(context.Background(), protocol.HookContext{
		Point:      protocol.PostToolUse,
		ToolResult: &protocol.ToolResultBlock{Content: "token is sk-abc123 please use it"},
	})
	require.NoError(t, err)
	require.Equal(t, protocol.ActionModifyToolOutput, action.Kind)
	require.Equal(t, "token is [redacted] please use it", action.NewToolOutput)
}

func TestExfiltrationGuardHaltsOnBlockedDestination(t *testing.T) {
	g := ExfiltrationGuard{Blocked: []string{"evil.example.com"}}
	action, err := g.OnEvent(context.Background(), protocol.HookContext{
		Point:     protocol.PreToolUse,
		ToolInput: []byte(`{"url":"https://evil.example.com/exfil"}`),
	})
	require.NoError(t, err)
	require.Equal(t, protocol.ActionHalt, action.Kind)
}
