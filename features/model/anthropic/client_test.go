package anthropic

import (
	"context"
	"encoding/json"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/require"

	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/relayforge/agentrt/runtime/provider"
)

type fakeMessages struct {
	resp *sdk.Message
	err  error
	got  sdk.MessageNewParams
}

func (f *fakeMessages) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	f.got = body
	return f.resp, f.err
}

func TestClientComplete_TextResponse(t *testing.T) {
	fm := &fakeMessages{resp: &sdk.Message{
		Content:    []sdk.ContentBlockUnion{{Type: "text", Text: "Hello there friend"}},
		StopReason: "end_turn",
		Model:      "claude-x",
		Usage:      sdk.Usage{InputTokens: 8, OutputTokens: 3},
	}}
	c, err := New(fm, Options{DefaultModel: "claude-x"})
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), provider.Request{
		Messages:  []protocol.Message{protocol.NewMessage(protocol.RoleUser, protocol.TextContent("hi"))},
		MaxTokens: 32,
	})
	require.NoError(t, err)
	require.Equal(t, provider.StopEndTurn, resp.StopReason)
	require.Len(t, resp.Content, 1)
	require.Equal(t, "Hello there friend", resp.Content[0].Text)
	require.EqualValues(t, 8, resp.Usage.InputTokens)
	require.EqualValues(t, 3, resp.Usage.OutputTokens)
}

func TestClientComplete_ToolUse(t *testing.T) {
	fm := &fakeMessages{resp: &sdk.Message{
		Content: []sdk.ContentBlockUnion{
			{Type: "tool_use", ID: "t1", Name: "echo", Input: json.RawMessage(`{"msg":"x"}`)},
		},
		StopReason: "tool_use",
	}}
	c, err := New(fm, Options{DefaultModel: "claude-x"})
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), provider.Request{
		Messages:  []protocol.Message{protocol.NewMessage(protocol.RoleUser, protocol.TextContent("hi"))},
		MaxTokens: 32,
	})
	require.NoError(t, err)
	require.Equal(t, provider.StopToolUse, resp.StopReason)
	require.Equal(t, protocol.BlockToolUse, resp.Content[0].Kind)
	require.Equal(t, "echo", resp.Content[0].ToolUse.Name)
}

func TestClientComplete_RequiresMaxTokens(t *testing.T) {
	fm := &fakeMessages{}
	c, err := New(fm, Options{DefaultModel: "claude-x"})
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), provider.Request{
		Messages: []protocol.Message{protocol.NewMessage(protocol.RoleUser, protocol.TextContent("hi"))},
	})
	require.Error(t, err)
}
