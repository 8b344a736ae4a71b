package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContentRoundTrip(t *testing.T) {
	cases := []Content{
		TextContent("hello there"),
		BlocksContent(
			TextBlock("intro"),
			ToolUseBlockOf("tu1", "search", json.RawMessage(`{"q":"golang"}`)),
			ToolResultBlockOf("tu1", "3 hits", false),
			CustomBlockOf("debug", json.RawMessage(`{"x":1}`)),
		),
	}
	for _, c := range cases {
		raw, err := json.Marshal(c)
		require.NoError(t, err)
		var out Content
		require.NoError(t, json.Unmarshal(raw, &out))
		require.Equal(t, c, out)
	}
}

func TestOperatorInputOutputRoundTrip(t *testing.T) {
	sess := SessionID("sess-1")
	maxTurns := 5
	in := OperatorInput{
		Message: TextContent("say hi"),
		Trigger: TriggerUser,
		Session: &sess,
		Config:  &OperatorConfig{MaxTurns: &maxTurns},
		Metadata: map[string]any{"trace_id": "abc"},
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	var decoded OperatorInput
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, in.Message, decoded.Message)
	require.Equal(t, in.Trigger, decoded.Trigger)
	require.Equal(t, *in.Session, *decoded.Session)
	require.Equal(t, *in.Config.MaxTurns, *decoded.Config.MaxTurns)

	out := OperatorOutput{
		Message:    TextContent("hi there"),
		ExitReason: Complete(),
		Metadata: OperatorMetadata{
			TokensIn:  8,
			TokensOut: 3,
			Cost:      DecimalFromFloat(0.0001),
			TurnsUsed: 1,
		},
		Effects: []Effect{WriteMemory(GlobalScope(), "note", "important")},
	}
	raw, err = json.Marshal(out)
	require.NoError(t, err)
	var decodedOut OperatorOutput
	require.NoError(t, json.Unmarshal(raw, &decodedOut))
	require.Equal(t, out.Message, decodedOut.Message)
	require.Equal(t, out.ExitReason, decodedOut.ExitReason)
	require.Equal(t, out.Metadata.TurnsUsed, decodedOut.Metadata.TurnsUsed)
	require.Equal(t, 0, out.Metadata.Cost.Cmp(decodedOut.Metadata.Cost))
	require.Equal(t, out.Effects, decodedOut.Effects)
}

func TestEffectRoundTrip(t *testing.T) {
	effects := []Effect{
		WriteMemory(SessionScope("s1"), "k", "v"),
		DeleteMemory(WorkflowScope("w1"), "k"),
		Delegate("agent.b", OperatorInput{Message: TextContent("go"), Trigger: TriggerTask}),
		Handoff("agent.c", map[string]any{"stage": 2}),
		Signal("wf-1", map[string]any{"event": "ping"}),
		Log("info", "hello"),
		Custom("my_kind", map[string]any{"n": 1}),
	}
	for _, e := range effects {
		raw, err := json.Marshal(e)
		require.NoError(t, err)
		var out Effect
		require.NoError(t, json.Unmarshal(raw, &out))
		require.Equal(t, e.Kind, out.Kind)
	}
}

func TestScopeParsing(t *testing.T) {
	require.Equal(t, GlobalScope(), ParseScope("global"))
	require.Equal(t, SessionScope("abc"), ParseScope("session:abc"))
	require.Equal(t, WorkflowScope("wf1"), ParseScope("workflow:wf1"))
	require.Equal(t, CustomScope("weird"), ParseScope("weird"))
	require.Equal(t, "session:abc", SessionScope("abc").String())
}

func TestDecimalExactAddition(t *testing.T) {
	var total Decimal
	amount := DecimalFromFloat(0.0001)
	for i := 0; i < 10000; i++ {
		total = total.Add(amount)
	}
	require.Equal(t, "1.000000", total.String())
}

func TestToolErrorChain(t *testing.T) {
	inner := NewToolError(ToolErrInvalidInput, "bad field")
	outer := &ToolError{Kind: ToolErrExecutionFailed, Message: "call failed", Cause: inner}
	require.ErrorIs(t, outer, inner)
}
