package contextstrategy

import "github.com/relayforge/agentrt/runtime/protocol"

// NoOp never compacts. It is the default for callers that manage their own
// context budget or whose provider window is large relative to the
// conversation.
type NoOp struct {
	Counter TokenCounter
}

func NewNoOp() *NoOp { return &NoOp{Counter: CharHeuristicCounter{}} }

func (s *NoOp) TokenEstimate(messages []protocol.Message) uint64 { return s.Counter.Estimate(messages) }
func (s *NoOp) ShouldCompact([]protocol.Message, uint64) bool    { return false }
func (s *NoOp) Compact(messages []protocol.Message) []protocol.Message { return messages }

// SlidingWindow keeps the first message (typically the system/primer
// message) and the most recent TailSize messages, and drops everything in
// between. Compact does not consult the token estimate: it drops the whole
// middle at once, even when dropping fewer messages would bring the
// estimate under the limit.
type SlidingWindow struct {
	Counter  TokenCounter
	TailSize int // number of most-recent messages always kept
}

func NewSlidingWindow(tailSize int) *SlidingWindow {
	if tailSize <= 0 {
		tailSize = 4
	}
	return &SlidingWindow{Counter: CharHeuristicCounter{}, TailSize: tailSize}
}

func (s *SlidingWindow) TokenEstimate(messages []protocol.Message) uint64 {
	return s.Counter.Estimate(messages)
}

func (s *SlidingWindow) ShouldCompact(messages []protocol.Message, limit uint64) bool {
	return limit > 0 && s.TokenEstimate(messages) > limit
}

func (s *SlidingWindow) Compact(messages []protocol.Message) []protocol.Message {
	if len(messages) <= s.TailSize+1 {
		return messages
	}
	first := messages[0]
	tailStart := len(messages) - s.TailSize
	out := make([]protocol.Message, 0, s.TailSize+1)
	out = append(out, first)
	out = append(out, messages[tailStart:]...)
	return out
}

// ToolResultClearer replaces old ToolResult block contents with a
// placeholder, keeping the conversation shape (tool-use ids stay resolvable)
// while shedding the bulk of their payload. It preserves
// the last KeepRecent tool-bearing messages verbatim.
type ToolResultClearer struct {
	Counter    TokenCounter
	KeepRecent int
}

func NewToolResultClearer(keepRecent int) *ToolResultClearer {
	if keepRecent < 0 {
		keepRecent = 0
	}
	return &ToolResultClearer{Counter: CharHeuristicCounter{}, KeepRecent: keepRecent}
}

func (s *ToolResultClearer) TokenEstimate(messages []protocol.Message) uint64 {
	return s.Counter.Estimate(messages)
}

func (s *ToolResultClearer) ShouldCompact(messages []protocol.Message, limit uint64) bool {
	return limit > 0 && s.TokenEstimate(messages) > limit
}

const toolResultPlaceholder = "[older tool result cleared]"

func (s *ToolResultClearer) Compact(messages []protocol.Message) []protocol.Message {
	toolBearing := 0
	for _, m := range messages {
		if containsToolResult(m) {
			toolBearing++
		}
	}
	keepFrom := toolBearing - s.KeepRecent
	seen := 0
	out := make([]protocol.Message, len(messages))
	for i, m := range messages {
		if !containsToolResult(m) {
			out[i] = m
			continue
		}
		seen++
		if seen > keepFrom {
			out[i] = m
			continue
		}
		out[i] = clearToolResults(m)
	}
	return out
}

func containsToolResult(m protocol.Message) bool {
	for _, b := range m.Content.Blocks {
		if b.Kind == protocol.BlockToolResult {
			return true
		}
	}
	return false
}

func clearToolResults(m protocol.Message) protocol.Message {
	blocks := make([]protocol.Block, len(m.Content.Blocks))
	for i, b := range m.Content.Blocks {
		if b.Kind == protocol.BlockToolResult && b.ToolResult != nil {
			cleared := *b.ToolResult
			cleared.Content = toolResultPlaceholder
			b.ToolResult = &cleared
		}
		blocks[i] = b
	}
	return protocol.Message{Role: m.Role, Content: protocol.BlocksContent(blocks...)}
}

// Composite chains strategies in order. Its Compact applies every strategy
// in turn; it does not stop once the result is below the limit.
type Composite struct {
	Counter    TokenCounter
	Strategies []Strategy
}

func NewComposite(strategies ...Strategy) *Composite {
	return &Composite{Counter: CharHeuristicCounter{}, Strategies: strategies}
}

func (s *Composite) TokenEstimate(messages []protocol.Message) uint64 {
	return s.Counter.Estimate(messages)
}

func (s *Composite) ShouldCompact(messages []protocol.Message, limit uint64) bool {
	return limit > 0 && s.TokenEstimate(messages) > limit
}

// Compact applies each strategy's Compact in order. Callers that need to
// stop as soon as the result drops below a limit should call ShouldCompact
// between strategies themselves; Compact here always runs the full chain,
// favoring predictability over early-exit cleverness.
func (s *Composite) Compact(messages []protocol.Message) []protocol.Message {
	out := messages
	for _, strat := range s.Strategies {
		out = strat.Compact(out)
	}
	return out
}
