package orchestrator

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/relayforge/agentrt/runtime/state"
)

// Chain dispatches agents in sequence, feeding each agent's output message
// as the next agent's input. It returns the final agent's output. A failure
// at any step aborts the chain.
func (o *Orchestrator) Chain(ctx context.Context, agents []protocol.AgentID, in protocol.OperatorInput) (protocol.OperatorOutput, error) {
	var out protocol.OperatorOutput
	next := in
	for _, agent := range agents {
		result, err := o.Dispatch(ctx, agent, next, nil)
		if err != nil {
			return protocol.OperatorOutput{}, err
		}
		out = result
		next = protocol.OperatorInput{Message: result.Message, Trigger: protocol.TriggerTask, Session: in.Session}
	}
	return out, nil
}

// FanOut dispatches the same input to every agent concurrently and returns
// their results in agent order (see DispatchMany).
func (o *Orchestrator) FanOut(ctx context.Context, agents []protocol.AgentID, in protocol.OperatorInput) []DispatchResult {
	calls := make([]DispatchCall, len(agents))
	for i, a := range agents {
		calls[i] = DispatchCall{Agent: a, Input: in}
	}
	return o.DispatchMany(ctx, calls)
}

// FanIn concatenates a set of prior outputs into a single text message and
// dispatches it to an aggregator agent, the common "gather sub-agent
// results and summarize" pattern.
func (o *Orchestrator) FanIn(ctx context.Context, aggregator protocol.AgentID, results []DispatchResult, session *protocol.SessionID) (protocol.OperatorOutput, error) {
	var b strings.Builder
	wrote := false
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		if wrote {
			b.WriteString("\n\n")
		}
		b.WriteString(r.Output.Message.String())
		wrote = true
	}
	in := protocol.OperatorInput{Message: protocol.TextContent(b.String()), Trigger: protocol.TriggerTask, Session: session}
	return o.Dispatch(ctx, aggregator, in, nil)
}

// Delegate is a thin convenience wrapper around Dispatch for callers that
// model "dispatch a child and keep its output" outside of an Effect.
func (o *Orchestrator) Delegate(ctx context.Context, agent protocol.AgentID, in protocol.OperatorInput) (protocol.OperatorOutput, error) {
	return o.Dispatch(ctx, agent, in, nil)
}

// Handoff updates the global active-agent routing pointer directly, for
// callers that want to transfer control without going through an Effect
// returned from an invocation.
func (o *Orchestrator) Handoff(ctx context.Context, agent protocol.AgentID) error {
	return o.applyHandoff(ctx, "", &protocol.HandoffEffect{Agent: agent})
}

// ActiveAgent reads the global active-agent routing pointer written by the
// most recent Handoff, if any.
func (o *Orchestrator) ActiveAgent(ctx context.Context) (protocol.AgentID, error) {
	entry, err := o.State.Read(ctx, protocol.GlobalScope(), state.KeyActiveAgent)
	if err != nil {
		return "", err
	}
	var agent protocol.AgentID
	if err := json.Unmarshal(entry.Value, &agent); err != nil {
		return "", err
	}
	return agent, nil
}
