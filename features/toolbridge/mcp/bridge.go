// Package mcp bridges tool.Tool to externally-hosted tools served over the
// Model Context Protocol, via github.com/mark3labs/mcp-go. A Bridge
// connects once (stdio subprocess transport), lists the server's tools, and
// exposes each as an independent tool.Tool that can be registered into a
// tool.Registry alongside in-process tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/relayforge/agentrt/runtime/protocol"
)

// Bridge owns one MCP client connection and the tools discovered on it.
type Bridge struct {
	client *client.Client
}

// Connect launches the MCP server as a subprocess (stdio transport),
// performs the initialize handshake, and returns a Bridge ready to list and
// bridge tools.
func Connect(ctx context.Context, command string, args []string, env map[string]string) (*Bridge, error) {
	envPairs := make([]string, 0, len(env))
	for k, v := range env {
		envPairs = append(envPairs, k+"="+v)
	}
	c, err := client.NewStdioMCPClient(command, envPairs, args...)
	if err != nil {
		return nil, fmt.Errorf("mcp: create client: %w", err)
	}
	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "agentrt", Version: "0.1.0"}
	initReq.Params.ProtocolVersion = "2024-11-05"
	if _, err := c.Initialize(ctx, initReq); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("mcp: initialize: %w", err)
	}
	return &Bridge{client: c}, nil
}

// Close terminates the underlying MCP transport.
func (b *Bridge) Close() error { return b.client.Close() }

// Tools lists the server's advertised tools and wraps each as a tool.Tool.
func (b *Bridge) Tools(ctx context.Context) ([]*BridgedTool, error) {
	resp, err := b.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp: list tools: %w", err)
	}
	out := make([]*BridgedTool, 0, len(resp.Tools))
	for _, t := range resp.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("mcp: encode schema for %q: %w", t.Name, err)
		}
		out = append(out, &BridgedTool{
			bridge:      b,
			name:        t.Name,
			description: t.Description,
			schema:      schema,
		})
	}
	return out, nil
}

// BridgedTool implements tool.Tool by forwarding Call to the MCP server's
// tools/call RPC and flattening the result's content blocks to a JSON
// output the reasoning loop can fold into a ToolResultBlock.
type BridgedTool struct {
	bridge      *Bridge
	name        string
	description string
	schema      json.RawMessage
}

func (t *BridgedTool) Name() string                 { return t.name }
func (t *BridgedTool) Description() string          { return t.description }
func (t *BridgedTool) InputSchema() json.RawMessage { return t.schema }

func (t *BridgedTool) Call(ctx context.Context, inputJSON json.RawMessage) (json.RawMessage, error) {
	var args map[string]any
	if len(inputJSON) > 0 {
		if err := json.Unmarshal(inputJSON, &args); err != nil {
			return nil, protocol.NewToolError(protocol.ToolErrInvalidInput, "mcp: invalid input json: "+err.Error())
		}
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = t.name
	req.Params.Arguments = args

	resp, err := t.bridge.client.CallTool(ctx, req)
	if err != nil {
		return nil, protocol.NewToolError(protocol.ToolErrExecutionFailed, "mcp: call failed: "+err.Error())
	}
	out, err := flattenResult(resp)
	if err != nil {
		return nil, protocol.NewToolError(protocol.ToolErrExecutionFailed, err.Error())
	}
	if resp.IsError {
		return out, protocol.NewToolError(protocol.ToolErrExecutionFailed, string(out))
	}
	return out, nil
}

// flattenResult joins an MCP CallToolResult's text content blocks into a
// single JSON string value, matching the shape a ToolResultBlock.Content
// expects to render.
func flattenResult(resp *mcp.CallToolResult) (json.RawMessage, error) {
	var text string
	for i, c := range resp.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			if i > 0 {
				text += "\n"
			}
			text += tc.Text
		}
	}
	return json.Marshal(text)
}
