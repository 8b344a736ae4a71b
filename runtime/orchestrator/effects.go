package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/relayforge/agentrt/runtime/id"
	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/relayforge/agentrt/runtime/state"
)

// applyEffects carries out an invocation's declared Effects one at a time in
// the exact order they appear in effects, whatever their kind: Log and the
// memory effects write to the state store, Signal enqueues (never blocks),
// Delegate dispatches recursively (the child may itself declare further
// effects), Handoff updates the active-agent routing pointer, and Custom
// goes to its registered handler. The first failure stops the loop; later
// effects are not applied. effects is
// mutated in place: applyDelegate assigns the generated effect id it
// stores the child's result under back onto effects[i], so callers
// inspecting OperatorOutput.Effects after Dispatch returns can retrieve it.
func (o *Orchestrator) applyEffects(ctx context.Context, originAgent protocol.AgentID, parentSession *protocol.SessionID, effects []protocol.Effect) error {
	for i := range effects {
		eff := &effects[i]
		var err error
		switch eff.Kind {
		case protocol.EffectLog:
			o.applyLog(ctx, eff.Log)
		case protocol.EffectWriteMemory:
			err = o.applyWriteMemory(ctx, eff.WriteMemory)
		case protocol.EffectDeleteMemory:
			err = o.applyDeleteMemory(ctx, eff.DeleteMemory)
		case protocol.EffectSignal:
			err = o.applySignal(ctx, eff.Signal)
		case protocol.EffectDelegate:
			err = o.applyDelegate(ctx, parentSession, eff)
		case protocol.EffectHandoff:
			err = o.applyHandoff(ctx, originAgent, eff.Handoff)
		case protocol.EffectCustom:
			err = o.applyCustom(ctx, eff.Custom)
		}
		if err != nil {
			return fmt.Errorf("effect %s: %w", eff.Kind, err)
		}
	}
	return nil
}

func (o *Orchestrator) applyLog(ctx context.Context, eff *protocol.LogEffect) {
	if eff == nil {
		return
	}
	switch eff.Level {
	case "error":
		o.Logger.Error(ctx, eff.Message)
	case "warn":
		o.Logger.Warn(ctx, eff.Message)
	case "debug":
		o.Logger.Debug(ctx, eff.Message)
	default:
		o.Logger.Info(ctx, eff.Message)
	}
}

func (o *Orchestrator) applyWriteMemory(ctx context.Context, eff *protocol.WriteMemoryEffect) error {
	if eff == nil {
		return nil
	}
	payload, err := json.Marshal(eff.Value)
	if err != nil {
		return err
	}
	return writeWithRetry(ctx, o.State, eff.Scope, eff.Key, func([]byte) ([]byte, bool) {
		return payload, true
	})
}

func (o *Orchestrator) applyDeleteMemory(ctx context.Context, eff *protocol.DeleteMemoryEffect) error {
	if eff == nil {
		return nil
	}
	entry, err := o.State.Read(ctx, eff.Scope, eff.Key)
	if err != nil {
		if err == state.ErrNotFound {
			return nil
		}
		return err
	}
	err = o.State.Delete(ctx, eff.Scope, eff.Key, entry.Version)
	if err == state.ErrVersionConflict {
		// Lost a race with a concurrent writer; the key still existing with a
		// newer version is an acceptable outcome for an at-least-once delete.
		return nil
	}
	return err
}

func (o *Orchestrator) applySignal(ctx context.Context, eff *protocol.SignalEffect) error {
	if eff == nil {
		return nil
	}
	return o.Signal(ctx, eff.TargetWorkflow, eff.Payload)
}

// DelegateResult is the persisted outcome of a Delegate effect, stored
// under state.DelegateResultKey(effectID) so a subsequent dispatch can
// retrieve the child's OperatorOutput via Orchestrator.Query.
type DelegateResult struct {
	Output protocol.OperatorOutput `json:"output"`
	Error  string                  `json:"error,omitempty"`
}

// applyDelegate dispatches the delegated child invocation and persists its
// result (success or failure) under a freshly generated effect id, which it
// assigns onto eff.ID so the caller can retrieve the result later. A
// failed child dispatch is still persisted, then returned as this effect's
// error so applyEffects reports the delegation as failed.
func (o *Orchestrator) applyDelegate(ctx context.Context, parentSession *protocol.SessionID, eff *protocol.Effect) error {
	if eff.Delegate == nil {
		return nil
	}

	out, dispatchErr := o.Dispatch(ctx, eff.Delegate.Agent, eff.Delegate.Input, nil)

	effectID := id.NewEffectID()
	eff.ID = effectID

	scope := protocol.GlobalScope()
	switch {
	case parentSession != nil:
		scope = protocol.SessionScope(*parentSession)
	case eff.Delegate.Input.Session != nil:
		scope = protocol.SessionScope(*eff.Delegate.Input.Session)
	}

	result := DelegateResult{Output: out}
	if dispatchErr != nil {
		result.Error = dispatchErr.Error()
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	if err := writeWithRetry(ctx, o.State, scope, state.DelegateResultKey(effectID), func([]byte) ([]byte, bool) {
		return payload, true
	}); err != nil {
		return err
	}

	return dispatchErr
}

func (o *Orchestrator) applyHandoff(ctx context.Context, _ protocol.AgentID, eff *protocol.HandoffEffect) error {
	if eff == nil {
		return nil
	}
	payload, err := json.Marshal(eff.Agent)
	if err != nil {
		return err
	}
	return writeWithRetry(ctx, o.State, protocol.GlobalScope(), state.KeyActiveAgent, func([]byte) ([]byte, bool) {
		return payload, true
	})
}

func (o *Orchestrator) applyCustom(ctx context.Context, eff *protocol.CustomEffect) error {
	if eff == nil {
		return nil
	}
	o.mu.RLock()
	h, ok := o.custom[eff.EffectKind]
	o.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no custom effect handler registered for %q", eff.EffectKind)
	}
	return h(ctx, eff.Payload)
}

// writeWithRetry reads the current entry (if any), computes the new value
// via transform, and CAS-writes it back, retrying a bounded number of times
// if a concurrent writer raced it.
func writeWithRetry(ctx context.Context, st state.Store, scope protocol.Scope, key string, transform func(current []byte) (next []byte, ok bool)) error {
	const maxAttempts = 5
	for attempt := 0; attempt < maxAttempts; attempt++ {
		entry, err := st.Read(ctx, scope, key)
		version := uint64(0)
		var current []byte
		if err == nil {
			version, current = entry.Version, entry.Value
		} else if err != state.ErrNotFound {
			return err
		}
		next, ok := transform(current)
		if !ok {
			return nil
		}
		_, err = st.Write(ctx, scope, key, next, version)
		if err == nil {
			return nil
		}
		if err != state.ErrVersionConflict {
			return err
		}
	}
	return fmt.Errorf("orchestrator: write to %s/%s lost the CAS race %d times", scope.String(), key, maxAttempts)
}

// withCAS is writeWithRetry specialized for a JSON-encoded []any queue,
// used by Signal to append without clobbering a concurrent append.
func withCAS(ctx context.Context, st state.Store, scope protocol.Scope, key string, mutate func(queue []any) []any) error {
	return writeWithRetry(ctx, st, scope, key, func(current []byte) ([]byte, bool) {
		var queue []any
		if len(current) > 0 {
			_ = json.Unmarshal(current, &queue)
		}
		queue = mutate(queue)
		next, err := json.Marshal(queue)
		if err != nil {
			return nil, false
		}
		return next, true
	})
}
