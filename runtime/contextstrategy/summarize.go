package contextstrategy

import (
	"context"

	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/relayforge/agentrt/runtime/provider"
)

// Summarizer uses a secondary provider to produce a textual summary of
// dropped history and substitutes it for the messages it replaces.
// Compact is not pure for this strategy (it performs a provider call); the
// operator loop treats all strategies uniformly and does not assume purity.
type Summarizer struct {
	Counter    TokenCounter
	Provider   provider.Provider
	Model      string
	KeepRecent int
}

func NewSummarizer(p provider.Provider, model string, keepRecent int) *Summarizer {
	if keepRecent <= 0 {
		keepRecent = 4
	}
	return &Summarizer{Counter: CharHeuristicCounter{}, Provider: p, Model: model, KeepRecent: keepRecent}
}

func (s *Summarizer) TokenEstimate(messages []protocol.Message) uint64 {
	return s.Counter.Estimate(messages)
}

func (s *Summarizer) ShouldCompact(messages []protocol.Message, limit uint64) bool {
	return limit > 0 && s.TokenEstimate(messages) > limit
}

// Compact summarizes every message but the first and the most recent
// KeepRecent, replacing them with a single assistant message carrying the
// summary text. On provider failure it degrades to returning messages
// unchanged rather than failing the operator invocation outright — a
// compaction failure should never abort an otherwise-successful turn.
func (s *Summarizer) Compact(messages []protocol.Message) []protocol.Message {
	if len(messages) <= s.KeepRecent+1 {
		return messages
	}
	first := messages[0]
	tailStart := len(messages) - s.KeepRecent
	toSummarize := messages[1:tailStart]
	tail := messages[tailStart:]

	summary, err := s.summarize(toSummarize)
	if err != nil {
		return messages
	}

	out := make([]protocol.Message, 0, 2+len(tail))
	out = append(out, first)
	out = append(out, protocol.NewMessage(protocol.RoleAssistant, protocol.TextContent("Summary of earlier conversation: "+summary)))
	out = append(out, tail...)
	return out
}

func (s *Summarizer) summarize(messages []protocol.Message) (string, error) {
	prompt := make([]protocol.Message, len(messages), len(messages)+1)
	copy(prompt, messages)
	prompt = append(prompt, protocol.NewMessage(protocol.RoleUser,
		protocol.TextContent("Summarize the conversation above concisely, preserving any facts later turns may depend on.")))
	req := provider.Request{
		Model:     s.Model,
		Messages:  prompt,
		MaxTokens: 512,
	}
	resp, err := s.Provider.Complete(context.Background(), req)
	if err != nil {
		return "", err
	}
	var text string
	for _, b := range resp.Content {
		if b.Kind == protocol.BlockText {
			text += b.Text
		}
	}
	return text, nil
}
