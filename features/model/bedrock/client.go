// Package bedrock implements provider.Provider on top of the AWS Bedrock
// Converse API, mirroring the request-shape and tool-schema translation the
// Anthropic adapter performs, but targeting bedrockruntime.Converse instead
// of the Anthropic Messages API.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"

	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/relayforge/agentrt/runtime/provider"
)

// RuntimeClient mirrors the subset of *bedrockruntime.Client the adapter
// needs, so tests can substitute a fake.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Options configures the Bedrock adapter.
type Options struct {
	Runtime      RuntimeClient
	DefaultModel string
	Temperature  float32
}

// Client implements provider.Provider against AWS Bedrock Converse.
type Client struct {
	runtime      RuntimeClient
	defaultModel string
	temperature  float32
}

// New builds a Client from a Bedrock runtime client and Options.
func New(opts Options) (*Client, error) {
	if opts.Runtime == nil {
		return nil, errors.New("bedrock: runtime client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("bedrock: default model is required")
	}
	return &Client{runtime: opts.Runtime, defaultModel: opts.DefaultModel, temperature: opts.Temperature}, nil
}

// Complete implements provider.Provider.
func (c *Client) Complete(ctx context.Context, req provider.Request) (provider.Response, error) {
	input, err := c.encodeInput(req)
	if err != nil {
		return provider.Response{}, provider.NewError("bedrock", "complete", provider.ErrorKindInvalidResponse, err.Error(), err)
	}
	out, err := c.runtime.Converse(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "ThrottlingException", "ServiceUnavailableException":
				return provider.Response{}, provider.NewError("bedrock", "complete", provider.ErrorKindRateLimited, apiErr.ErrorMessage(), err)
			case "AccessDeniedException", "UnrecognizedClientException":
				return provider.Response{}, provider.NewError("bedrock", "complete", provider.ErrorKindAuthFailed, apiErr.ErrorMessage(), err)
			}
		}
		return provider.Response{}, provider.NewError("bedrock", "complete", provider.ErrorKindRequestFailed, "converse failed", err)
	}
	return translateOutput(out)
}

func (c *Client) encodeInput(req provider.Request) (*bedrockruntime.ConverseInput, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("at least one message is required")
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	msgs, system, err := encodeMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(model),
		Messages: msgs,
	}
	if system != "" {
		input.System = []brtypes.SystemContentBlock{&brtypes.SystemContentBlockMemberText{Value: system}}
	}
	cfg := &brtypes.InferenceConfiguration{}
	if req.MaxTokens > 0 {
		mt := int32(req.MaxTokens)
		cfg.MaxTokens = &mt
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	} else if c.temperature > 0 {
		cfg.Temperature = &c.temperature
	}
	input.InferenceConfig = cfg
	if len(req.Tools) > 0 {
		input.ToolConfig = encodeToolConfig(req.Tools)
	}
	return input, nil
}

func encodeMessages(msgs []protocol.Message) ([]brtypes.Message, string, error) {
	out := make([]brtypes.Message, 0, len(msgs))
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
		var role brtypes.ConversationRole
		switch m.Role {
		case protocol.RoleUser, protocol.RoleTool:
			role = brtypes.ConversationRoleUser
		case protocol.RoleAssistant:
			role = brtypes.ConversationRoleAssistant
		default:
			return nil, "", fmt.Errorf("bedrock: unsupported role %q", m.Role)
		}
		out = append(out, brtypes.Message{Role: role, Content: blocks})
	}
	return out, system, nil
}

func encodeBlocks(content protocol.Content) ([]brtypes.ContentBlock, error) {
	if content.Text != "" {
		return []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: content.Text}}, nil
	}
	out := make([]brtypes.ContentBlock, 0, len(content.Blocks))
	for _, b := range content.Blocks {
		switch b.Kind {
		case protocol.BlockText:
			if b.Text != "" {
				out = append(out, &brtypes.ContentBlockMemberText{Value: b.Text})
			}
		case protocol.BlockToolUse:
			if b.ToolUse == nil {
				continue
			}
			var input any
			_ = json.Unmarshal(b.ToolUse.InputJSON, &input)
			out = append(out, &brtypes.ContentBlockMemberToolUse{Value: brtypes.ToolUseBlock{
				ToolUseId: aws.String(string(b.ToolUse.ID)),
				Name:      aws.String(b.ToolUse.Name),
				Input:     document.NewLazyDocument(input),
			}})
		case protocol.BlockToolResult:
			if b.ToolResult == nil {
				continue
			}
			status := brtypes.ToolResultStatusSuccess
			if b.ToolResult.IsError {
				status = brtypes.ToolResultStatusError
			}
			out = append(out, &brtypes.ContentBlockMemberToolResult{Value: brtypes.ToolResultBlock{
				ToolUseId: aws.String(string(b.ToolResult.ToolUseID)),
				Status:    status,
				Content:   []brtypes.ToolResultContentBlock{&brtypes.ToolResultContentBlockMemberText{Value: b.ToolResult.Content}},
			}})
		}
	}
	return out, nil
}

func encodeToolConfig(schemas []provider.ToolSchema) *brtypes.ToolConfiguration {
	tools := make([]brtypes.Tool, 0, len(schemas))
	for _, s := range schemas {
		var schema any
		_ = json.Unmarshal(s.InputSchema, &schema)
		tools = append(tools, &brtypes.ToolMemberToolSpec{Value: brtypes.ToolSpecification{
			Name:        aws.String(s.Name),
			Description: aws.String(s.Description),
			InputSchema: &brtypes.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(schema)},
		}})
	}
	return &brtypes.ToolConfiguration{Tools: tools}
}

func translateOutput(out *bedrockruntime.ConverseOutput) (provider.Response, error) {
	if out == nil || out.Output == nil {
		return provider.Response{}, errors.New("bedrock: nil converse output")
	}
	msgMember, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return provider.Response{}, errors.New("bedrock: unexpected converse output variant")
	}
	var blocks []protocol.Block
	for _, b := range msgMember.Value.Content {
		switch v := b.(type) {
		case *brtypes.ContentBlockMemberText:
			if v.Value != "" {
				blocks = append(blocks, protocol.TextBlock(v.Value))
			}
		case *brtypes.ContentBlockMemberToolUse:
			var raw any
			_ = v.Value.Input.UnmarshalSmithyDocument(&raw)
			input, _ := json.Marshal(raw)
			blocks = append(blocks, protocol.ToolUseBlockOf(protocol.ToolUseID(aws.ToString(v.Value.ToolUseId)), aws.ToString(v.Value.Name), input))
		}
	}
	resp := provider.Response{
		Content:    blocks,
		StopReason: translateStopReason(out.StopReason),
	}
	if out.Usage != nil {
		resp.Usage = provider.Usage{
			InputTokens:  uint64(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: uint64(aws.ToInt32(out.Usage.OutputTokens)),
		}
	}
	return resp, nil
}

func translateStopReason(r brtypes.StopReason) provider.StopReason {
	switch r {
	case brtypes.StopReasonToolUse:
		return provider.StopToolUse
	case brtypes.StopReasonMaxTokens:
		return provider.StopMaxTokens
	case brtypes.StopReasonContentFiltered:
		return provider.StopContentFilter
	default:
		return provider.StopEndTurn
	}
}
