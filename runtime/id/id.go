// Package id generates the opaque identifiers used throughout the protocol
// (AgentID is caller-assigned; Session/Workflow/ToolUse ids are usually
// generated here).
package id

import (
	"github.com/google/uuid"

	"github.com/relayforge/agentrt/runtime/protocol"
)

// NewSessionID generates a fresh random session identifier.
func NewSessionID() protocol.SessionID {
	return protocol.SessionID(uuid.NewString())
}

// NewWorkflowID generates a fresh random workflow identifier.
func NewWorkflowID() protocol.WorkflowID {
	return protocol.WorkflowID(uuid.NewString())
}

// NewToolUseID generates a fresh random tool-use correlation identifier.
func NewToolUseID() protocol.ToolUseID {
	return protocol.ToolUseID(uuid.NewString())
}

// NewEffectID generates a fresh random identifier used to correlate an
// applied Effect (for example a Delegate effect) with a result the
// orchestrator persists for it.
func NewEffectID() string {
	return uuid.NewString()
}

// NewInvocationID generates a fresh random identifier for one operator
// invocation's session.InvocationMeta record.
func NewInvocationID() string {
	return uuid.NewString()
}
