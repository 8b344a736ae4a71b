// Package anthropic implements provider.Provider on top of the Anthropic
// Claude Messages API, translating protocol.Message/Block values into
// anthropic-sdk-go request params and anthropic responses back into
// provider.Response.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/relayforge/agentrt/runtime/provider"
)

// MessagesClient captures the subset of the Anthropic SDK used by the
// adapter, so tests can substitute a fake without a live client.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Options configures the adapter's default model routing.
type Options struct {
	// DefaultModel is used when Request.Model is empty.
	DefaultModel string
	Temperature  float64
}

// Client implements provider.Provider against Anthropic Claude Messages.
type Client struct {
	msg          MessagesClient
	defaultModel string
	temperature  float64
}

// New builds a Client from an Anthropic Messages client and Options.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("anthropic: default model is required")
	}
	return &Client{msg: msg, defaultModel: opts.DefaultModel, temperature: opts.Temperature}, nil
}

// NewFromAPIKey builds a Client using the Anthropic SDK's own HTTP
// transport, reading ANTHROPIC_API_KEY-style defaults via option.WithAPIKey.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, Options{DefaultModel: defaultModel})
}

// Complete implements provider.Provider.
func (c *Client) Complete(ctx context.Context, req provider.Request) (provider.Response, error) {
	params, err := c.encodeRequest(req)
	if err != nil {
		return provider.Response{}, provider.NewError("anthropic", "complete", provider.ErrorKindInvalidResponse, err.Error(), err)
	}
	msg, err := c.msg.New(ctx, params)
	if err != nil {
		if isRateLimited(err) {
			return provider.Response{}, provider.NewError("anthropic", "complete", provider.ErrorKindRateLimited, "rate limited", err)
		}
		if isAuthError(err) {
			return provider.Response{}, provider.NewError("anthropic", "complete", provider.ErrorKindAuthFailed, "authentication failed", err)
		}
		return provider.Response{}, provider.NewError("anthropic", "complete", provider.ErrorKindRequestFailed, "messages.new failed", err)
	}
	return translateResponse(msg)
}

func (c *Client) encodeRequest(req provider.Request) (sdk.MessageNewParams, error) {
	if len(req.Messages) == 0 {
		return sdk.MessageNewParams{}, errors.New("at least one message is required")
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	msgs, system, err := encodeMessages(req.Messages)
	if err != nil {
		return sdk.MessageNewParams{}, err
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		return sdk.MessageNewParams{}, errors.New("max_tokens must be positive")
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	if len(req.Tools) > 0 {
		params.Tools = encodeTools(req.Tools)
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	} else if c.temperature > 0 {
		params.Temperature = sdk.Float(c.temperature)
	}
	return params, nil
}

func encodeMessages(msgs []protocol.Message) ([]sdk.MessageParam, string, error) {
	out := make([]sdk.MessageParam, 0, len(msgs))
	var system string
	for _, m := range msgs {
		if m.Role == protocol.RoleSystem {
			if system == "" {
				system = m.Content.String()
			} else {
				system += "\n\n" + m.Content.String()
			}
			continue
		}
		blocks, err := encodeBlocks(m.Content)
		if err != nil {
			return nil, "", err
		}
		if len(blocks) == 0 {
			continue
		}
		switch m.Role {
		case protocol.RoleUser, protocol.RoleTool:
			out = append(out, sdk.NewUserMessage(blocks...))
		case protocol.RoleAssistant:
			out = append(out, sdk.NewAssistantMessage(blocks...))
		default:
			return nil, "", fmt.Errorf("anthropic: unsupported role %q", m.Role)
		}
	}
	return out, system, nil
}

func encodeBlocks(content protocol.Content) ([]sdk.ContentBlockParamUnion, error) {
	if content.Text != "" {
		return []sdk.ContentBlockParamUnion{sdk.NewTextBlock(content.Text)}, nil
	}
	out := make([]sdk.ContentBlockParamUnion, 0, len(content.Blocks))
	for _, b := range content.Blocks {
		switch b.Kind {
		case protocol.BlockText:
			if b.Text != "" {
				out = append(out, sdk.NewTextBlock(b.Text))
			}
		case protocol.BlockToolUse:
			if b.ToolUse == nil {
				continue
			}
			var input any
			_ = json.Unmarshal(b.ToolUse.InputJSON, &input)
			out = append(out, sdk.NewToolUseBlock(string(b.ToolUse.ID), input, b.ToolUse.Name))
		case protocol.BlockToolResult:
			if b.ToolResult == nil {
				continue
			}
			out = append(out, sdk.NewToolResultBlock(string(b.ToolResult.ToolUseID), b.ToolResult.Content, b.ToolResult.IsError))
		case protocol.BlockImage:
			if b.Image == nil {
				continue
			}
			if b.Image.SourceKind == protocol.ImageSourceURL {
				out = append(out, sdk.NewImageBlock(sdk.NewURLImageSourceParam(b.Image.URL)))
			} else {
				out = append(out, sdk.NewImageBlock(sdk.NewBase64ImageSourceParam(b.Image.MediaType, b.Image.Base64)))
			}
		case protocol.BlockCustom:
			// Provider-specific escape hatch: render as text so the model sees it.
			if b.Custom != nil {
				out = append(out, sdk.NewTextBlock(fmt.Sprintf("[%s] %s", b.Custom.ContentType, string(b.Custom.DataJSON))))
			}
		}
	}
	return out, nil
}

func encodeTools(schemas []provider.ToolSchema) []sdk.ToolUnionParam {
	out := make([]sdk.ToolUnionParam, 0, len(schemas))
	for _, s := range schemas {
		var schema map[string]any
		_ = json.Unmarshal(s.InputSchema, &schema)
		u := sdk.ToolUnionParamOfTool(sdk.ToolInputSchemaParam{ExtraFields: schema}, s.Name)
		if u.OfTool != nil {
			u.OfTool.Description = sdk.String(s.Description)
		}
		out = append(out, u)
	}
	return out
}

func translateResponse(msg *sdk.Message) (provider.Response, error) {
	if msg == nil {
		return provider.Response{}, errors.New("anthropic: nil response")
	}
	var blocks []protocol.Block
	for _, b := range msg.Content {
		switch b.Type {
		case "text":
			if b.Text != "" {
				blocks = append(blocks, protocol.TextBlock(b.Text))
			}
		case "tool_use":
			input, err := json.Marshal(b.Input)
			if err != nil {
				return provider.Response{}, err
			}
			blocks = append(blocks, protocol.ToolUseBlockOf(protocol.ToolUseID(b.ID), b.Name, input))
		}
	}
	return provider.Response{
		Content:    blocks,
		StopReason: translateStopReason(string(msg.StopReason)),
		Usage: provider.Usage{
			InputTokens:         uint64(msg.Usage.InputTokens),
			OutputTokens:        uint64(msg.Usage.OutputTokens),
			CacheReadTokens:     uint64(msg.Usage.CacheReadInputTokens),
			CacheCreationTokens: uint64(msg.Usage.CacheCreationInputTokens),
		},
		ModelUsed: string(msg.Model),
	}, nil
}

func translateStopReason(s string) provider.StopReason {
	switch s {
	case "tool_use":
		return provider.StopToolUse
	case "max_tokens":
		return provider.StopMaxTokens
	case "stop_sequence", "end_turn":
		return provider.StopEndTurn
	default:
		return provider.StopEndTurn
	}
}

func isRateLimited(err error) bool {
	var apiErr *sdk.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == 429
}

func isAuthError(err error) bool {
	var apiErr *sdk.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == 401
}
