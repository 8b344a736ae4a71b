package protocol

// IDs are opaque, type-distinguished strings. Equality is byte-equality;
// callers must not parse or derive structure from them.

// AgentID names a dispatchable agent within an Orchestrator.
type AgentID string

// SessionID names a durable conversation scope.
type SessionID string

// WorkflowID names an orchestration instance that can receive signals.
type WorkflowID string

// ToolUseID correlates a ToolUseBlock with its ToolResultBlock.
type ToolUseID string
