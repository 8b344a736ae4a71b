package contextstrategy

import (
	"testing"

	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/stretchr/testify/require"
)

func msgs(n int) []protocol.Message {
	out := make([]protocol.Message, n)
	for i := range out {
		out[i] = protocol.NewMessage(protocol.RoleUser, protocol.TextContent("message number with some padding text"))
	}
	return out
}

func TestNoOpNeverCompacts(t *testing.T) {
	s := NewNoOp()
	m := msgs(100)
	require.False(t, s.ShouldCompact(m, 1))
	require.Equal(t, m, s.Compact(m))
}

func TestSlidingWindowPreservesFirstAndTail(t *testing.T) {
	s := NewSlidingWindow(2)
	m := msgs(10)
	out := s.Compact(m)
	require.Len(t, out, 3)
	require.Equal(t, m[0], out[0])
	require.Equal(t, m[8], out[1])
	require.Equal(t, m[9], out[2])
}

func TestTokenMonotonicityAcrossAppendAndCompact(t *testing.T) {
	s := NewSlidingWindow(2)
	base := msgs(3)
	appended := msgs(4)
	require.GreaterOrEqual(t, s.TokenEstimate(appended), s.TokenEstimate(base))

	big := msgs(20)
	compacted := s.Compact(big)
	require.LessOrEqual(t, s.TokenEstimate(compacted), s.TokenEstimate(big))
}

func TestToolResultClearerKeepsRecentVerbatim(t *testing.T) {
	s := NewToolResultClearer(1)
	m := []protocol.Message{
		protocol.NewMessage(protocol.RoleUser, protocol.TextContent("start")),
		protocol.NewMessage(protocol.RoleUser, protocol.BlocksContent(protocol.ToolResultBlockOf("tu1", "old result", false))),
		protocol.NewMessage(protocol.RoleUser, protocol.BlocksContent(protocol.ToolResultBlockOf("tu2", "recent result", false))),
	}
	out := s.Compact(m)
	require.Equal(t, toolResultPlaceholder, out[1].Content.Blocks[0].ToolResult.Content)
	require.Equal(t, "recent result", out[2].Content.Blocks[0].ToolResult.Content)
	// tool_use_id correlation must survive clearing.
	require.Equal(t, protocol.ToolUseID("tu1"), out[1].Content.Blocks[0].ToolResult.ToolUseID)
}

func TestCompositeChainsStrategies(t *testing.T) {
	c := NewComposite(NewSlidingWindow(5), NewToolResultClearer(1))
	m := msgs(20)
	out := c.Compact(m)
	require.LessOrEqual(t, len(out), len(m))
}
