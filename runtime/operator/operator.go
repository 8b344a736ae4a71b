// Package operator implements the reasoning-loop Operator: the component
// that turns one OperatorInput into one OperatorOutput by repeatedly calling
// a provider, dispatching tool calls, and folding hook decisions, until the
// model produces a final answer or a configured limit trips.
package operator

import (
	"context"
	"time"

	"github.com/relayforge/agentrt/runtime/protocol"
)

// Operator executes a single invocation against a conversation history and
// returns exactly one OperatorOutput, or an error from the closed
// protocol.OperatorErrorKind taxonomy. Operators never retry internally —
// retry policy lives one layer up, in the orchestrator.
type Operator interface {
	Execute(ctx context.Context, in protocol.OperatorInput, history []protocol.Message) (protocol.OperatorOutput, error)
}

// Config carries an operator's default settings. Per-invocation
// protocol.OperatorConfig overrides are merged onto these defaults at the
// start of Execute; Config itself is never mutated by a running invocation.
type Config struct {
	Model          string
	System         string
	MaxTurns       int
	MaxCost        protocol.Decimal
	MaxDuration    time.Duration
	AllowedTools   []string // empty means every registered tool is allowed
	MaxOutputTokens int
}

// resolved is the effective, per-invocation configuration after merging
// protocol.OperatorConfig overrides onto Config defaults.
type resolved struct {
	model        string
	system       string
	maxTurns     int
	maxCost      protocol.Decimal
	maxDuration  time.Duration
	allowedTools map[string]bool // nil means unrestricted
	maxOutputTokens int
}

func (c Config) resolve(override *protocol.OperatorConfig) resolved {
	r := resolved{
		model:       c.Model,
		system:      c.System,
		maxTurns:    c.MaxTurns,
		maxCost:     c.MaxCost,
		maxDuration: c.MaxDuration,
		maxOutputTokens: c.MaxOutputTokens,
	}
	if len(c.AllowedTools) > 0 {
		r.allowedTools = toSet(c.AllowedTools)
	}
	if override == nil {
		return r
	}
	if override.Model != nil {
		r.model = *override.Model
	}
	if override.SystemAddendum != nil {
		if r.system == "" {
			r.system = *override.SystemAddendum
		} else {
			r.system = r.system + "\n\n" + *override.SystemAddendum
		}
	}
	if override.MaxTurns != nil {
		r.maxTurns = *override.MaxTurns
	}
	if override.MaxCost != nil {
		r.maxCost = *override.MaxCost
	}
	if override.MaxDuration != nil {
		r.maxDuration = *override.MaxDuration
	}
	if len(override.AllowedTools) > 0 {
		r.allowedTools = toSet(override.AllowedTools)
	}
	return r
}

func toSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

func (r resolved) toolAllowed(name string) bool {
	if r.allowedTools == nil {
		return true
	}
	return r.allowedTools[name]
}

// StreamSink receives content blocks as they are produced, for callers that
// want to observe an invocation incrementally. It is attached via
// OperatorInput.Metadata["stream_sink"] and is a purely in-process,
// non-serializable convenience: it has no bearing on OperatorOutput, the
// error taxonomy, or any invariant governing the returned message.
type StreamSink interface {
	OnBlock(ctx context.Context, block protocol.Block)
}

const streamSinkMetadataKey = "stream_sink"

func streamSinkFrom(in protocol.OperatorInput) StreamSink {
	if in.Metadata == nil {
		return nil
	}
	sink, _ := in.Metadata[streamSinkMetadataKey].(StreamSink)
	return sink
}
