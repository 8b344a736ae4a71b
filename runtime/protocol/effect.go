package protocol

import "strings"

// ScopeKind discriminates the variant carried by a Scope.
type ScopeKind string

const (
	ScopeGlobal   ScopeKind = "global"
	ScopeSession  ScopeKind = "session"
	ScopeWorkflow ScopeKind = "workflow"
	ScopeCustom   ScopeKind = "custom"
)

// Scope is the namespace of a state entry. Exactly one of SessionID,
// WorkflowID, or Custom is populated, selected by Kind.
type Scope struct {
	Kind       ScopeKind  `json:"kind"`
	SessionID  SessionID  `json:"session_id,omitempty"`
	WorkflowID WorkflowID `json:"workflow_id,omitempty"`
	Custom     string     `json:"custom,omitempty"`
}

// GlobalScope returns the process-wide scope.
func GlobalScope() Scope { return Scope{Kind: ScopeGlobal} }

// SessionScope returns a scope bound to a session.
func SessionScope(id SessionID) Scope { return Scope{Kind: ScopeSession, SessionID: id} }

// WorkflowScope returns a scope bound to a workflow.
func WorkflowScope(id WorkflowID) Scope { return Scope{Kind: ScopeWorkflow, WorkflowID: id} }

// CustomScope returns an application-defined scope.
func CustomScope(name string) Scope { return Scope{Kind: ScopeCustom, Custom: name} }

// ParseScope maps the effect-tool scope strings to a Scope value:
// "global" -> Global; "session:<id>" -> Session(id); "workflow:<id>" ->
// Workflow(id); anything else -> Custom(s).
func ParseScope(s string) Scope {
	switch {
	case s == "global":
		return GlobalScope()
	case strings.HasPrefix(s, "session:"):
		return SessionScope(SessionID(strings.TrimPrefix(s, "session:")))
	case strings.HasPrefix(s, "workflow:"):
		return WorkflowScope(WorkflowID(strings.TrimPrefix(s, "workflow:")))
	default:
		return CustomScope(s)
	}
}

// String renders the Scope back into its canonical string form.
func (s Scope) String() string {
	switch s.Kind {
	case ScopeGlobal:
		return "global"
	case ScopeSession:
		return "session:" + string(s.SessionID)
	case ScopeWorkflow:
		return "workflow:" + string(s.WorkflowID)
	default:
		return s.Custom
	}
}

// EffectKind discriminates the variant carried by an Effect.
type EffectKind string

const (
	EffectWriteMemory  EffectKind = "write_memory"
	EffectDeleteMemory EffectKind = "delete_memory"
	EffectDelegate     EffectKind = "delegate"
	EffectHandoff      EffectKind = "handoff"
	EffectSignal       EffectKind = "signal"
	EffectLog          EffectKind = "log"
	EffectCustom       EffectKind = "custom"
)

// Effect is a declarative side-effect an Operator asks the Orchestrator to
// perform. Operators never perform effects themselves — they only declare
// them, in the order they occur during execution.
type Effect struct {
	Kind EffectKind `json:"kind"`

	// ID correlates an applied effect with any result the orchestrator
	// persists for it. Operators leave it empty when declaring an effect;
	// the orchestrator assigns it while applying a Delegate effect, so a
	// caller inspecting OperatorOutput.Effects after Dispatch returns can
	// retrieve the child's result via Orchestrator.Query.
	ID string `json:"id,omitempty"`

	WriteMemory  *WriteMemoryEffect  `json:"write_memory,omitempty"`
	DeleteMemory *DeleteMemoryEffect `json:"delete_memory,omitempty"`
	Delegate     *DelegateEffect     `json:"delegate,omitempty"`
	Handoff      *HandoffEffect      `json:"handoff,omitempty"`
	Signal       *SignalEffect       `json:"signal,omitempty"`
	Log          *LogEffect          `json:"log,omitempty"`
	Custom       *CustomEffect       `json:"custom,omitempty"`
}

// WriteMemoryEffect requests a key/value write at the given scope.
type WriteMemoryEffect struct {
	Scope Scope  `json:"scope"`
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// DeleteMemoryEffect requests a key deletion at the given scope.
type DeleteMemoryEffect struct {
	Scope Scope  `json:"scope"`
	Key   string `json:"key"`
}

// DelegateEffect requests the orchestrator dispatch a child invocation on the
// named agent. The child input is owned by this effect (no shared mutable
// state).
type DelegateEffect struct {
	Agent AgentID       `json:"agent"`
	Input OperatorInput `json:"input"`
}

// HandoffEffect requests the orchestrator update its active-agent routing
// pointer.
type HandoffEffect struct {
	Agent AgentID `json:"agent"`
	State any     `json:"state,omitempty"`
}

// SignalEffect requests delivery of a payload to a workflow's signal queue.
// Delivery is at-least-once and may be deferred.
type SignalEffect struct {
	TargetWorkflow WorkflowID `json:"target_workflow"`
	Payload        any        `json:"payload"`
}

// LogEffect requests a structured log line be recorded by the orchestrator.
type LogEffect struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// CustomEffect is the extensibility escape hatch; orchestrators dispatch it
// to a handler registered under Kind.
type CustomEffect struct {
	EffectKind string `json:"effect_kind"`
	Payload    any    `json:"payload"`
}

// Helper constructors keep call sites (operator effect-tool handling,
// hand-authored tests) free of struct-literal boilerplate.

func WriteMemory(scope Scope, key string, value any) Effect {
	return Effect{Kind: EffectWriteMemory, WriteMemory: &WriteMemoryEffect{Scope: scope, Key: key, Value: value}}
}

func DeleteMemory(scope Scope, key string) Effect {
	return Effect{Kind: EffectDeleteMemory, DeleteMemory: &DeleteMemoryEffect{Scope: scope, Key: key}}
}

func Delegate(agent AgentID, input OperatorInput) Effect {
	return Effect{Kind: EffectDelegate, Delegate: &DelegateEffect{Agent: agent, Input: input}}
}

func Handoff(agent AgentID, state any) Effect {
	return Effect{Kind: EffectHandoff, Handoff: &HandoffEffect{Agent: agent, State: state}}
}

func Signal(target WorkflowID, payload any) Effect {
	return Effect{Kind: EffectSignal, Signal: &SignalEffect{TargetWorkflow: target, Payload: payload}}
}

func Log(level, message string) Effect {
	return Effect{Kind: EffectLog, Log: &LogEffect{Level: level, Message: message}}
}

func Custom(kind string, payload any) Effect {
	return Effect{Kind: EffectCustom, Custom: &CustomEffect{EffectKind: kind, Payload: payload}}
}
