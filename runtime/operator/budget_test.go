package operator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/relayforge/agentrt/runtime/provider"
	"github.com/relayforge/agentrt/runtime/tool"
)

func toolUseWithCost(id, name, input string, cost protocol.Decimal) provider.Response {
	r := toolUse(id, name, input)
	r.Cost = &cost
	return r
}

// Invariant: once aggregated cost reaches MaxCost, the loop exits with
// ExitBudgetExhausted rather than making another provider call, even if
// the model would otherwise keep calling tools indefinitely.
func TestReAct_MaxCostExhaustedStopsLoop(t *testing.T) {
	reg := tool.New()
	reg.Register(echoTool(t))
	cost := protocol.DecimalFromFloat(0.6)
	p := &scriptedProvider{responses: []provider.Response{
		toolUseWithCost("1", "echo", `{}`, cost),
		toolUseWithCost("2", "echo", `{}`, cost),
		toolUseWithCost("3", "echo", `{}`, cost),
	}}
	o := newReAct(p, reg)
	o.Config.MaxCost = protocol.DecimalFromFloat(1.0)
	o.Config.MaxTurns = 0 // unlimited, so only the cost bound can stop the loop

	out, err := o.Execute(context.Background(), protocol.OperatorInput{Message: protocol.TextContent("hi"), Trigger: protocol.TriggerUser}, nil)
	require.NoError(t, err)
	require.Equal(t, protocol.ExitBudgetExhausted, out.ExitReason.Kind)
	require.Equal(t, 2, p.calls, "loop must stop as soon as aggregated cost reaches MaxCost, not run an extra turn")
	require.True(t, out.Metadata.Cost.Cmp(o.Config.MaxCost) >= 0)
}

// Invariant: MaxTurns bounds the number of provider calls exactly, never
// one more or one fewer than configured, when the model keeps calling
// tools every turn.
func TestReAct_MaxTurnsBoundsProviderCallsExactly(t *testing.T) {
	reg := tool.New()
	reg.Register(echoTool(t))
	responses := make([]provider.Response, 5)
	for i := range responses {
		responses[i] = toolUse("call", "echo", `{}`)
	}
	p := &scriptedProvider{responses: responses}
	o := newReAct(p, reg)
	o.Config.MaxTurns = 5

	out, err := o.Execute(context.Background(), protocol.OperatorInput{Message: protocol.TextContent("hi"), Trigger: protocol.TriggerUser}, nil)
	require.NoError(t, err)
	require.Equal(t, protocol.ExitMaxTurns, out.ExitReason.Kind)
	require.Equal(t, 5, p.calls)
	require.Equal(t, 5, out.Metadata.TurnsUsed)
}

// A MaxTurns of zero means unlimited; the loop must run past what would
// otherwise be a default-sized bound when only an end_turn response stops it.
func TestReAct_ZeroMaxTurnsIsUnlimited(t *testing.T) {
	reg := tool.New()
	reg.Register(echoTool(t))
	responses := make([]provider.Response, 20)
	for i := 0; i < 19; i++ {
		responses[i] = toolUse("call", "echo", `{}`)
	}
	responses[19] = endTurn("finally done")
	p := &scriptedProvider{responses: responses}
	o := newReAct(p, reg)
	o.Config.MaxTurns = 0

	out, err := o.Execute(context.Background(), protocol.OperatorInput{Message: protocol.TextContent("hi"), Trigger: protocol.TriggerUser}, nil)
	require.NoError(t, err)
	require.Equal(t, protocol.ExitComplete, out.ExitReason.Kind)
	require.Equal(t, 20, out.Metadata.TurnsUsed)
}
