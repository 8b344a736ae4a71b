// Package state defines the scoped key/value substrate the orchestrator uses
// to persist workflow routing (active-agent pointer, pending signal queue)
// and that WriteMemory/DeleteMemory effects target. Writes are serialized
// per (scope, key) via compare-and-swap so that concurrent dispatches never
// silently clobber one another's effects.
package state

import (
	"context"
	"errors"

	"github.com/relayforge/agentrt/runtime/protocol"
)

// ErrVersionConflict is returned by Write when the caller's expected
// version does not match the stored version — another writer raced it.
// Callers should reload and retry.
var ErrVersionConflict = errors.New("state: version conflict")

// ErrNotFound is returned by Read when no value exists for (scope, key).
var ErrNotFound = errors.New("state: not found")

// Entry is one versioned value stored under a (Scope, Key) pair.
type Entry struct {
	Scope   protocol.Scope
	Key     string
	Value   []byte
	Version uint64
}

// Store is a scoped, versioned key/value substrate. Every mutation is
// compare-and-swap: the caller supplies the version it last observed (0 for
// "key must not yet exist") and the write fails with ErrVersionConflict if
// the stored version has since moved.
type Store interface {
	Read(ctx context.Context, scope protocol.Scope, key string) (Entry, error)
	List(ctx context.Context, scope protocol.Scope) ([]Entry, error)
	// Write performs a compare-and-swap: it succeeds only if the current
	// stored version equals expectedVersion, then returns the entry's new
	// version.
	Write(ctx context.Context, scope protocol.Scope, key string, value []byte, expectedVersion uint64) (uint64, error)
	Delete(ctx context.Context, scope protocol.Scope, key string, expectedVersion uint64) error
}

// Reserved key names used by the orchestrator's routing table.
// KeyActiveAgent is stored under the Global scope (one pointer for the
// whole orchestrator, not one per workflow); KeySignalQueue is stored under
// each target workflow's Workflow scope.
const (
	KeyActiveAgent = "__active_agent__"
	KeySignalQueue = "__signal_queue__"

	// KeyConversationHistory holds the JSON-encoded []protocol.Message
	// transcript for a session, stored under protocol.SessionScope(id). The
	// orchestrator reads it to assemble context for an invocation that
	// supplies no explicit history and appends to it after each dispatch.
	KeyConversationHistory = "__conversation_history__"

	delegateResultKeyPrefix = "__delegate_result__:"
)

// DelegateResultKey returns the well-known key under which a Delegate
// effect's child OperatorOutput is stored, keyed by the generated effect id
// so a later dispatch can retrieve it via Orchestrator.Query.
func DelegateResultKey(effectID string) string {
	return delegateResultKeyPrefix + effectID
}
