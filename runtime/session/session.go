// Package session defines the durable conversational container that groups
// related operator invocations together. A Session outlives any single
// invocation; invocations reference a session by ID but the session's
// lifecycle (create/end) is managed independently of any one invocation.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/relayforge/agentrt/runtime/protocol"
)

type (
	// Session captures durable session lifecycle state.
	//
	// Contract:
	//   - IDs are caller-provided and stable.
	//   - Sessions are created explicitly (Store.Create) and ended explicitly
	//     (Store.End).
	//   - An ended session is terminal: no new invocation may be dispatched
	//     against it.
	Session struct {
		ID        protocol.SessionID
		Status    Status
		CreatedAt time.Time
		EndedAt   *time.Time
	}

	// InvocationMeta records one operator invocation's lifecycle, correlated
	// to its owning session so a caller can reconstruct invocation history
	// without replaying the full message log.
	InvocationMeta struct {
		AgentID     protocol.AgentID
		SessionID   protocol.SessionID
		Status      InvocationStatus
		StartedAt   time.Time
		UpdatedAt   time.Time
		Labels      map[string]string
		ExitReason  *protocol.ExitReason
		TurnsUsed   int
	}

	// Status is the lifecycle state of a Session.
	Status string

	// InvocationStatus is the lifecycle state of one operator invocation.
	InvocationStatus string

	// Store persists session lifecycle state and invocation metadata.
	// Implementations must surface failures rather than swallow them: an
	// orchestrator fails a dispatch fast when session bookkeeping fails
	// rather than proceed with inconsistent state.
	Store interface {
		// Create creates (or idempotently returns) an active session.
		// Returns ErrSessionEnded if the session exists but is terminal.
		Create(ctx context.Context, id protocol.SessionID, createdAt time.Time) (Session, error)
		// Load loads an existing session. Returns ErrSessionNotFound if absent.
		Load(ctx context.Context, id protocol.SessionID) (Session, error)
		// End ends a session. Idempotent: ending an already-ended session
		// returns the stored session unchanged.
		End(ctx context.Context, id protocol.SessionID, endedAt time.Time) (Session, error)

		// UpsertInvocation inserts or updates invocation metadata. StartedAt
		// is immutable once set.
		UpsertInvocation(ctx context.Context, inv InvocationMeta, invocationID string) error
		// LoadInvocation loads invocation metadata by its id.
		LoadInvocation(ctx context.Context, invocationID string) (InvocationMeta, error)
		// ListInvocations lists invocation metadata for a session, optionally
		// filtered to the given statuses (all statuses if empty).
		ListInvocations(ctx context.Context, id protocol.SessionID, statuses []InvocationStatus) ([]InvocationMeta, error)
	}
)

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"

	InvocationPending   InvocationStatus = "pending"
	InvocationRunning   InvocationStatus = "running"
	InvocationCompleted InvocationStatus = "completed"
	InvocationFailed    InvocationStatus = "failed"
	InvocationCancelled InvocationStatus = "cancelled"
)

var (
	ErrSessionNotFound    = errors.New("session: not found")
	ErrSessionEnded       = errors.New("session: already ended")
	ErrInvocationNotFound = errors.New("session: invocation not found")
)
