// Package orchestrator implements the multi-agent dispatch layer: it owns
// the set of registered agents, applies the Effects an Operator invocation
// declares, routes workflow signals and handoffs through the state
// substrate, and is the only layer that retries a failed invocation — an
// Operator never retries itself.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/relayforge/agentrt/runtime/id"
	"github.com/relayforge/agentrt/runtime/operator"
	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/relayforge/agentrt/runtime/session"
	sessioninmem "github.com/relayforge/agentrt/runtime/session/inmem"
	"github.com/relayforge/agentrt/runtime/state"
	"github.com/relayforge/agentrt/runtime/telemetry"
)

// RetryPolicy controls how many times, and with what backoff, the
// orchestrator retries a Dispatch whose Operator returned a retryable
// protocol.OperatorError.
type RetryPolicy struct {
	MaxAttempts        int
	InitialInterval    time.Duration
	BackoffCoefficient float64
	Jitter             bool
}

// DefaultRetryPolicy matches the defaults most callers want: three total
// attempts, a 250ms initial backoff doubling each retry, with jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialInterval: 250 * time.Millisecond, BackoffCoefficient: 2.0, Jitter: true}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	d := float64(p.InitialInterval)
	for i := 1; i < attempt; i++ {
		d *= p.BackoffCoefficient
	}
	if p.Jitter {
		d = d * (0.5 + rand.Float64()*0.5)
	}
	return time.Duration(d)
}

// CustomEffectHandler handles a protocol.CustomEffect of a given kind.
type CustomEffectHandler func(ctx context.Context, payload any) error

// ErrAgentNotRegistered is returned by Dispatch when no agent is
// registered under the requested AgentID.
var ErrAgentNotRegistered = errors.New("orchestrator: agent not registered")

// Orchestrator dispatches OperatorInputs to registered agents and carries
// out the Effects they declare.
type Orchestrator struct {
	mu     sync.RWMutex
	agents map[protocol.AgentID]operator.Operator
	custom map[string]CustomEffectHandler

	State  state.Store
	// Sessions persists session lifecycle state and invocation metadata
	// (see runtime/session). New defaults it to an in-memory store;
	// callers that need a durable backend assign a different
	// session.Store implementation after construction.
	Sessions session.Store
	Retry    RetryPolicy
	Logger   telemetry.Logger
}

// New constructs an Orchestrator backed by the given state.Store. Pass a
// zero-value RetryPolicy to disable retries (MaxAttempts <= 1 means no
// retry), or DefaultRetryPolicy() for the standard backoff.
func New(st state.Store, retry RetryPolicy, logger telemetry.Logger) *Orchestrator {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Orchestrator{
		agents:   make(map[protocol.AgentID]operator.Operator),
		custom:   make(map[string]CustomEffectHandler),
		State:    st,
		Sessions: sessioninmem.New(),
		Retry:    retry,
		Logger:   logger,
	}
}

// Register binds an agent id to the Operator that serves it.
func (o *Orchestrator) Register(id protocol.AgentID, op operator.Operator) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.agents[id] = op
}

// RegisterCustomEffectHandler binds a handler for protocol.CustomEffect
// values carrying the given EffectKind discriminator string.
func (o *Orchestrator) RegisterCustomEffectHandler(kind string, h CustomEffectHandler) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.custom[kind] = h
}

func (o *Orchestrator) lookup(id protocol.AgentID) (operator.Operator, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	op, ok := o.agents[id]
	return op, ok
}

// Dispatch runs one invocation against the named agent, retrying per Retry
// whenever the Operator fails with a retryable protocol.OperatorError, then
// applies every Effect the invocation declared, in order, before returning.
//
// When in.Session is set, Dispatch also owns the session lifecycle: it
// creates the session on first reference (failing if it was already
// ended), assembles context by loading prior conversation history from the
// state store when the caller supplies none, records an InvocationMeta for
// the attempt, and — once the invocation and its effects have both
// succeeded — appends the turn to the session's persisted history. A state
// read failure while assembling history is non-fatal and is treated as no
// history; a failure recording the invocation's start or persisting its
// history is fatal, since proceeding would leave session bookkeeping
// inconsistent. Recording the invocation's final status is best-effort: a
// failure there is logged and does not change Dispatch's result.
func (o *Orchestrator) Dispatch(ctx context.Context, agent protocol.AgentID, in protocol.OperatorInput, history []protocol.Message) (protocol.OperatorOutput, error) {
	op, ok := o.lookup(agent)
	if !ok {
		return protocol.OperatorOutput{}, fmt.Errorf("%w: %s", ErrAgentNotRegistered, agent)
	}

	var invocationID string
	if in.Session != nil {
		if _, err := o.Sessions.Create(ctx, *in.Session, time.Time{}); err != nil {
			return protocol.OperatorOutput{}, fmt.Errorf("orchestrator: session %s: %w", *in.Session, err)
		}
		if len(history) == 0 {
			history = o.loadHistory(ctx, *in.Session)
		}
		invocationID = id.NewInvocationID()
		if err := o.Sessions.UpsertInvocation(ctx, session.InvocationMeta{
			AgentID:   agent,
			SessionID: *in.Session,
			Status:    session.InvocationRunning,
			StartedAt: time.Now().UTC(),
		}, invocationID); err != nil {
			return protocol.OperatorOutput{}, fmt.Errorf("orchestrator: recording invocation: %w", err)
		}
	}

	maxAttempts := o.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var (
		out     protocol.OperatorOutput
		lastErr error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return protocol.OperatorOutput{}, ctx.Err()
			case <-time.After(o.Retry.backoff(attempt - 1)):
			}
		}
		out, lastErr = op.Execute(ctx, in, history)
		if lastErr == nil {
			break
		}
		oe, isOperatorErr := protocol.AsOperatorError(lastErr)
		if !isOperatorErr || !oe.Retryable() {
			break
		}
		o.Logger.Warn(ctx, "dispatch retrying after retryable operator error", "agent", string(agent), "attempt", attempt, "error", lastErr.Error())
	}
	if lastErr != nil {
		if in.Session != nil {
			o.finishInvocation(ctx, agent, *in.Session, invocationID, session.InvocationFailed, nil)
		}
		return protocol.OperatorOutput{}, lastErr
	}

	if err := o.applyEffects(ctx, agent, in.Session, out.Effects); err != nil {
		if in.Session != nil {
			o.finishInvocation(ctx, agent, *in.Session, invocationID, session.InvocationFailed, &out)
		}
		return out, fmt.Errorf("orchestrator: applying effects: %w", err)
	}

	if in.Session != nil {
		if err := o.persistTurn(ctx, *in.Session, history, in.Message, out.Message); err != nil {
			return out, fmt.Errorf("orchestrator: persisting session history: %w", err)
		}
		o.finishInvocation(ctx, agent, *in.Session, invocationID, session.InvocationCompleted, &out)
	}

	return out, nil
}

// loadHistory reads a session's persisted conversation from the state
// store. Per the context-assembly contract, a read failure (including the
// key never having been written) is non-fatal and yields no history rather
// than aborting the dispatch.
func (o *Orchestrator) loadHistory(ctx context.Context, sid protocol.SessionID) []protocol.Message {
	entry, err := o.State.Read(ctx, protocol.SessionScope(sid), state.KeyConversationHistory)
	if err != nil {
		return nil
	}
	var messages []protocol.Message
	if err := json.Unmarshal(entry.Value, &messages); err != nil {
		return nil
	}
	return messages
}

// persistTurn appends the user and assistant messages of one turn to a
// session's persisted conversation, CAS-retrying against whatever is
// currently stored so a concurrent dispatch on the same session can't
// silently clobber this write.
func (o *Orchestrator) persistTurn(ctx context.Context, sid protocol.SessionID, priorHistory []protocol.Message, userMsg, assistantMsg protocol.Content) error {
	scope := protocol.SessionScope(sid)
	return writeWithRetry(ctx, o.State, scope, state.KeyConversationHistory, func(current []byte) ([]byte, bool) {
		messages := priorHistory
		if len(current) > 0 {
			var stored []protocol.Message
			if err := json.Unmarshal(current, &stored); err == nil {
				messages = stored
			}
		}
		if !userMsg.IsEmpty() {
			messages = append(messages, protocol.NewMessage(protocol.RoleUser, userMsg))
		}
		if !assistantMsg.IsEmpty() {
			messages = append(messages, protocol.NewMessage(protocol.RoleAssistant, assistantMsg))
		}
		next, err := json.Marshal(messages)
		if err != nil {
			return nil, false
		}
		return next, true
	})
}

// finishInvocation records an invocation's terminal status. Failures here
// are logged rather than surfaced: by the time it runs, Dispatch already
// has a result (or error) to return, and invocation bookkeeping is
// best-effort once the invocation itself has settled.
func (o *Orchestrator) finishInvocation(ctx context.Context, agent protocol.AgentID, sid protocol.SessionID, invocationID string, status session.InvocationStatus, out *protocol.OperatorOutput) {
	meta := session.InvocationMeta{
		AgentID:   agent,
		SessionID: sid,
		Status:    status,
	}
	if out != nil {
		reason := out.ExitReason
		meta.ExitReason = &reason
		meta.TurnsUsed = out.Metadata.TurnsUsed
	}
	if err := o.Sessions.UpsertInvocation(ctx, meta, invocationID); err != nil {
		o.Logger.Warn(ctx, "failed to record invocation outcome", "agent", string(agent), "session", string(sid), "error", err.Error())
	}
}

// DispatchCall is one unit of work for DispatchMany.
type DispatchCall struct {
	Agent   protocol.AgentID
	Input   protocol.OperatorInput
	History []protocol.Message
}

// DispatchResult holds one DispatchMany entry's output (or error). It
// carries no index of its own: DispatchMany returns each result at the same
// position as the call that produced it.
type DispatchResult struct {
	Output protocol.OperatorOutput
	Err    error
}

// DispatchMany runs every call concurrently (one goroutine per call,
// fanning out) and returns results in the same order as calls. A failure in
// one call does not cancel the others.
func (o *Orchestrator) DispatchMany(ctx context.Context, calls []DispatchCall) []DispatchResult {
	results := make([]DispatchResult, len(calls))
	var wg sync.WaitGroup
	wg.Add(len(calls))
	for i, c := range calls {
		go func(i int, c DispatchCall) {
			defer wg.Done()
			out, err := o.Dispatch(ctx, c.Agent, c.Input, c.History)
			results[i] = DispatchResult{Output: out, Err: err}
		}(i, c)
	}
	wg.Wait()
	return results
}

// Signal enqueues a payload on a workflow's signal queue, stored under
// state.KeySignalQueue in the workflow's Scope. Delivery is at-least-once:
// a consumer must dequeue (read, then CAS-write back the remainder) to
// avoid redelivery, which this method does not do on the caller's behalf.
func (o *Orchestrator) Signal(ctx context.Context, workflow protocol.WorkflowID, payload any) error {
	scope := protocol.WorkflowScope(workflow)
	return withCAS(ctx, o.State, scope, state.KeySignalQueue, func(queue []any) []any {
		return append(queue, payload)
	})
}

// Query reads a single scoped entry, the mechanism callers use to inspect
// workflow routing state or WriteMemory-effect writes from outside an
// invocation.
func (o *Orchestrator) Query(ctx context.Context, scope protocol.Scope, key string) (state.Entry, error) {
	return o.State.Read(ctx, scope, key)
}
