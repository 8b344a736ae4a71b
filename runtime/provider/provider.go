// Package provider defines the Provider contract the reasoning-loop operator
// consumes to call a large language model. Concrete wire formats for any
// specific LLM are out of scope for this package — see the
// features/model/* adapters for Anthropic- and Bedrock-backed
// implementations.
package provider

import (
	"context"
	"encoding/json"

	"github.com/relayforge/agentrt/runtime/protocol"
)

// Provider is the single-method LLM-call abstraction.
type Provider interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// ToolSchema is a JSON Schema document plus the metadata a provider needs to
// expose a tool to the model. Schemas are forwarded to the provider verbatim.
type ToolSchema struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Request carries everything needed for one provider call.
type Request struct {
	Model       string
	Messages    []protocol.Message
	Tools       []ToolSchema
	MaxTokens   int
	Temperature *float64
	System      string
	// Extra is the provider-specific extras bag, populated from
	// OperatorInput.Metadata.
	Extra map[string]any
}

// StopReason classifies why a provider call stopped producing output.
type StopReason string

const (
	StopEndTurn       StopReason = "end_turn"
	StopToolUse       StopReason = "tool_use"
	StopMaxTokens     StopReason = "max_tokens"
	StopContentFilter StopReason = "content_filter"
)

// Usage reports token accounting for a single provider call.
type Usage struct {
	InputTokens        uint64
	OutputTokens       uint64
	CacheReadTokens    uint64
	CacheCreationTokens uint64
}

// Response carries the content-block list (using protocol.Block, the same
// polymorphic content types used elsewhere), the stop reason, usage, the
// model actually used, and optional cost/truncation metadata.
type Response struct {
	Content      []protocol.Block
	StopReason   StopReason
	Usage        Usage
	ModelUsed    string
	Cost         *protocol.Decimal
	Truncated    bool
}
