// Package contextstrategy implements the token-estimation and compaction
// policies that keep an operator's message history within a
// provider's input window.
package contextstrategy

import "github.com/relayforge/agentrt/runtime/protocol"

// TokenCounter estimates the token footprint of a message list. The core
// ships a conservative character-based heuristic (CharHeuristicCounter);
// features/context/tiktoken supplies a model-aware counter.
type TokenCounter interface {
	Estimate(messages []protocol.Message) uint64
}

// Strategy keeps a conversation within a provider's token window.
// Compact is expected to be pure for deterministic strategies: the same
// input produces the same output.
type Strategy interface {
	TokenEstimate(messages []protocol.Message) uint64
	ShouldCompact(messages []protocol.Message, limit uint64) bool
	Compact(messages []protocol.Message) []protocol.Message
}

// CharHeuristicCounter estimates tokens as roughly one token per four bytes
// of rendered content, the same rough constant the operator uses to derive
// a token_limit from max_tokens.
type CharHeuristicCounter struct{}

func (CharHeuristicCounter) Estimate(messages []protocol.Message) uint64 {
	var total uint64
	for _, m := range messages {
		total += uint64(len(m.Content.String()))
	}
	return total / 4
}

// TokenLimitFromMaxTokens derives the compaction token_limit from a
// per-call max_tokens setting.
func TokenLimitFromMaxTokens(maxTokens int) uint64 {
	if maxTokens <= 0 {
		return 0
	}
	return uint64(maxTokens) * 4
}
