package orchestrator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/relayforge/agentrt/runtime/session"
	"github.com/relayforge/agentrt/runtime/state"
	"github.com/relayforge/agentrt/runtime/state/inmem"
	"github.com/relayforge/agentrt/runtime/telemetry"
)

// fakeOperator returns a scripted OperatorOutput/error pair, or a sequence
// of errors followed by a final success, for testing Dispatch's retry loop.
type fakeOperator struct {
	outputs []protocol.OperatorOutput
	errs    []error
	calls   int
}

func (f *fakeOperator) Execute(context.Context, protocol.OperatorInput, []protocol.Message) (protocol.OperatorOutput, error) {
	i := f.calls
	f.calls++
	var out protocol.OperatorOutput
	if i < len(f.outputs) {
		out = f.outputs[i]
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return out, err
}

func noRetry() RetryPolicy { return RetryPolicy{MaxAttempts: 1} }

func TestDispatch_AgentNotRegistered(t *testing.T) {
	o := New(inmem.New(), noRetry(), nil)
	_, err := o.Dispatch(context.Background(), "missing", protocol.OperatorInput{}, nil)
	require.ErrorIs(t, err, ErrAgentNotRegistered)
}

func TestDispatch_RetriesRetryableErrorThenSucceeds(t *testing.T) {
	op := &fakeOperator{
		outputs: []protocol.OperatorOutput{{}, {}, {ExitReason: protocol.Complete()}},
		errs: []error{
			protocol.NewOperatorError(protocol.ErrKindRetryable, "transient", nil),
			protocol.NewOperatorError(protocol.ErrKindRetryable, "transient", nil),
			nil,
		},
	}
	o := New(inmem.New(), RetryPolicy{MaxAttempts: 3, InitialInterval: 0}, telemetry.NewNoopLogger())
	o.Register("agent-1", op)

	out, err := o.Dispatch(context.Background(), "agent-1", protocol.OperatorInput{}, nil)
	require.NoError(t, err)
	require.Equal(t, protocol.ExitComplete, out.ExitReason.Kind)
	require.Equal(t, 3, op.calls)
}

func TestDispatch_NonRetryableErrorStopsImmediately(t *testing.T) {
	op := &fakeOperator{errs: []error{protocol.NewOperatorError(protocol.ErrKindNonRetryable, "bad input", nil)}}
	o := New(inmem.New(), RetryPolicy{MaxAttempts: 3, InitialInterval: 0}, nil)
	o.Register("agent-1", op)

	_, err := o.Dispatch(context.Background(), "agent-1", protocol.OperatorInput{}, nil)
	require.Error(t, err)
	require.Equal(t, 1, op.calls)
}

func TestDispatch_AppliesWriteMemoryEffect(t *testing.T) {
	eff := protocol.WriteMemory(protocol.GlobalScope(), "k", "v")
	op := &fakeOperator{outputs: []protocol.OperatorOutput{{ExitReason: protocol.Complete(), Effects: []protocol.Effect{eff}}}}
	store := inmem.New()
	o := New(store, noRetry(), nil)
	o.Register("agent-1", op)

	_, err := o.Dispatch(context.Background(), "agent-1", protocol.OperatorInput{}, nil)
	require.NoError(t, err)

	entry, err := store.Read(context.Background(), protocol.GlobalScope(), "k")
	require.NoError(t, err)
	require.JSONEq(t, `"v"`, string(entry.Value))
}

func TestDispatch_AppliesHandoffEffectAndActiveAgentReflectsIt(t *testing.T) {
	eff := protocol.Handoff("agent-2", nil)
	op := &fakeOperator{outputs: []protocol.OperatorOutput{{ExitReason: protocol.Complete(), Effects: []protocol.Effect{eff}}}}
	o := New(inmem.New(), noRetry(), nil)
	o.Register("agent-1", op)

	_, err := o.Dispatch(context.Background(), "agent-1", protocol.OperatorInput{}, nil)
	require.NoError(t, err)

	active, err := o.ActiveAgent(context.Background())
	require.NoError(t, err)
	require.Equal(t, protocol.AgentID("agent-2"), active)
}

func TestDispatch_DelegateEffectRunsChildAgent(t *testing.T) {
	childRan := false
	child := operatorFunc(func(context.Context, protocol.OperatorInput, []protocol.Message) (protocol.OperatorOutput, error) {
		childRan = true
		return protocol.OperatorOutput{ExitReason: protocol.Complete(), Message: protocol.TextContent("done")}, nil
	})
	parentEff := protocol.Delegate("child", protocol.OperatorInput{Message: protocol.TextContent("go")})
	parent := &fakeOperator{outputs: []protocol.OperatorOutput{{ExitReason: protocol.Complete(), Effects: []protocol.Effect{parentEff}}}}

	o := New(inmem.New(), noRetry(), nil)
	o.Register("parent", parent)
	o.Register("child", child)

	out, err := o.Dispatch(context.Background(), "parent", protocol.OperatorInput{}, nil)
	require.NoError(t, err)
	require.True(t, childRan)

	require.Len(t, out.Effects, 1)
	require.NotEmpty(t, out.Effects[0].ID)

	entry, err := o.Query(context.Background(), protocol.GlobalScope(), state.DelegateResultKey(out.Effects[0].ID))
	require.NoError(t, err)
	var stored DelegateResult
	require.NoError(t, json.Unmarshal(entry.Value, &stored))
	require.Equal(t, "done", stored.Output.Message.Text)
	require.Empty(t, stored.Error)
}

func TestDispatch_PersistsSessionHistoryAcrossInvocations(t *testing.T) {
	var received []protocol.Message
	op := operatorFunc(func(_ context.Context, in protocol.OperatorInput, history []protocol.Message) (protocol.OperatorOutput, error) {
		received = history
		return protocol.OperatorOutput{ExitReason: protocol.Complete(), Message: protocol.TextContent("reply")}, nil
	})
	o := New(inmem.New(), noRetry(), nil)
	o.Register("agent-1", op)

	sid := protocol.SessionID("sess-1")
	_, err := o.Dispatch(context.Background(), "agent-1", protocol.OperatorInput{Session: &sid, Message: protocol.TextContent("hi")}, nil)
	require.NoError(t, err)
	require.Empty(t, received)

	_, err = o.Dispatch(context.Background(), "agent-1", protocol.OperatorInput{Session: &sid, Message: protocol.TextContent("again")}, nil)
	require.NoError(t, err)
	require.Len(t, received, 2)
	require.Equal(t, protocol.RoleUser, received[0].Role)
	require.Equal(t, "hi", received[0].Content.Text)
	require.Equal(t, protocol.RoleAssistant, received[1].Role)
	require.Equal(t, "reply", received[1].Content.Text)

	invocations, err := o.Sessions.ListInvocations(context.Background(), sid, nil)
	require.NoError(t, err)
	require.Len(t, invocations, 2)
	for _, inv := range invocations {
		require.Equal(t, session.InvocationCompleted, inv.Status)
	}
}

func TestDispatchMany_PreservesOrderAndIsolatesFailures(t *testing.T) {
	ok := &fakeOperator{outputs: []protocol.OperatorOutput{{ExitReason: protocol.Complete()}}}
	bad := &fakeOperator{errs: []error{protocol.NewOperatorError(protocol.ErrKindNonRetryable, "boom", nil)}}
	o := New(inmem.New(), noRetry(), nil)
	o.Register("ok", ok)
	o.Register("bad", bad)

	results := o.DispatchMany(context.Background(), []DispatchCall{
		{Agent: "ok", Input: protocol.OperatorInput{}},
		{Agent: "bad", Input: protocol.OperatorInput{}},
		{Agent: "ok", Input: protocol.OperatorInput{}},
	})
	require.Len(t, results, 3)
	require.NoError(t, results[0].Err)
	require.Error(t, results[1].Err)
	require.NoError(t, results[2].Err)
}

func TestSignal_EnqueuesOntoWorkflowQueue(t *testing.T) {
	o := New(inmem.New(), noRetry(), nil)
	require.NoError(t, o.Signal(context.Background(), "wf-1", map[string]any{"n": 1}))
	require.NoError(t, o.Signal(context.Background(), "wf-1", map[string]any{"n": 2}))

	entry, err := o.State.Read(context.Background(), protocol.WorkflowScope("wf-1"), state.KeySignalQueue)
	require.NoError(t, err)
	require.Contains(t, string(entry.Value), `"n":1`)
	require.Contains(t, string(entry.Value), `"n":2`)
}

// operatorFunc adapts a plain function to the operator.Operator interface
// without depending on the operator package (avoiding an import cycle with
// this _test.go file, which only needs the interface shape).
type operatorFunc func(context.Context, protocol.OperatorInput, []protocol.Message) (protocol.OperatorOutput, error)

func (f operatorFunc) Execute(ctx context.Context, in protocol.OperatorInput, history []protocol.Message) (protocol.OperatorOutput, error) {
	return f(ctx, in, history)
}
