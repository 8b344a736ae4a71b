// Package plugin implements environment.Environment by running tool calls
// in a sandboxed subprocess via github.com/hashicorp/go-plugin, using its
// net/rpc transport (no protoc code generation required) rather than its
// gRPC transport. The subprocess never sees the orchestrating process's
// credentials directly; Execute passes only the already-resolved values
// this invocation needs.
package plugin

import (
	"context"
	"fmt"
	"net/rpc"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	hcplugin "github.com/hashicorp/go-plugin"

	"github.com/relayforge/agentrt/runtime/environment"
)

// handshakeConfig is a fixed, shared constant both host and plugin binary
// must agree on; it is not a secret, only a version guard against running
// a mismatched plugin binary.
var handshakeConfig = hcplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "AGENTRT_TOOL_PLUGIN",
	MagicCookieValue: "agentrt-tool-plugin-v1",
}

// ExecuteRequest is the RPC payload sent to the plugin subprocess.
type ExecuteRequest struct {
	ToolName    string
	Input       []byte
	Credentials map[string]string
}

// ExecuteResponse is the RPC reply returned by the plugin subprocess.
type ExecuteResponse struct {
	Output []byte
}

// ToolExecutor is the interface a plugin subprocess implements. Plugin
// binaries import this package, implement ToolExecutor, and call Serve in
// their main function.
type ToolExecutor interface {
	Execute(req ExecuteRequest) (ExecuteResponse, error)
}

// executorPlugin adapts a ToolExecutor to hcplugin.Plugin's net/rpc
// transport.
type executorPlugin struct {
	Impl ToolExecutor
}

func (p *executorPlugin) Server(*hcplugin.MuxBroker) (any, error) {
	return &rpcServer{impl: p.Impl}, nil
}

func (p *executorPlugin) Client(_ *hcplugin.MuxBroker, c *rpc.Client) (any, error) {
	return &rpcClient{client: c}, nil
}

type rpcServer struct {
	impl ToolExecutor
}

func (s *rpcServer) Execute(req ExecuteRequest, resp *ExecuteResponse) error {
	out, err := s.impl.Execute(req)
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

type rpcClient struct {
	client *rpc.Client
}

func (c *rpcClient) Execute(req ExecuteRequest) (ExecuteResponse, error) {
	var resp ExecuteResponse
	if err := c.client.Call("Plugin.Execute", req, &resp); err != nil {
		return ExecuteResponse{}, err
	}
	return resp, nil
}

const pluginKey = "tool_executor"

// pluginMap is shared by both Serve (subprocess side) and Connect (host
// side) so the dispensed name always matches.
func pluginMap(impl ToolExecutor) map[string]hcplugin.Plugin {
	return map[string]hcplugin.Plugin{
		pluginKey: &executorPlugin{Impl: impl},
	}
}

// Serve runs impl as a plugin subprocess, blocking until the host
// terminates the connection. Call this from a plugin binary's main
// function; it never returns under normal operation.
func Serve(impl ToolExecutor) {
	hcplugin.Serve(&hcplugin.ServeConfig{
		HandshakeConfig: handshakeConfig,
		Plugins:         pluginMap(impl),
	})
}

// Environment launches one plugin subprocess per tool-call isolation unit
// and implements environment.Environment by forwarding Execute calls to it
// over net/rpc.
type Environment struct {
	client   *hcplugin.Client
	executor ToolExecutor
}

// Connect launches the plugin binary at path and performs the handshake.
// Callers should defer Close to terminate the subprocess.
func Connect(path string, args ...string) (*Environment, error) {
	logger := hclog.New(&hclog.LoggerOptions{Name: "agentrt-plugin", Level: hclog.Warn})
	client := hcplugin.NewClient(&hcplugin.ClientConfig{
		HandshakeConfig:  handshakeConfig,
		Plugins:          pluginMap(nil),
		Cmd:              exec.Command(path, args...),
		Logger:           logger,
		AllowedProtocols: []hcplugin.Protocol{hcplugin.ProtocolNetRPC},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("plugin: rpc client: %w", err)
	}
	raw, err := rpcClient.Dispense(pluginKey)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("plugin: dispense: %w", err)
	}
	executor, ok := raw.(ToolExecutor)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("plugin: dispensed value does not implement ToolExecutor")
	}
	return &Environment{client: client, executor: executor}, nil
}

// Close terminates the plugin subprocess.
func (e *Environment) Close() {
	e.client.Kill()
}

// Execute implements environment.Environment, forwarding the call to the
// plugin subprocess over net/rpc with resolved credentials flattened to a
// name-value map for transport.
func (e *Environment) Execute(ctx context.Context, toolName string, input []byte, creds []environment.ResolvedCredential) ([]byte, error) {
	credMap := make(map[string]string, len(creds))
	for _, c := range creds {
		credMap[c.Ref.Name] = c.Value
	}
	resp, err := e.executor.Execute(ExecuteRequest{ToolName: toolName, Input: input, Credentials: credMap})
	if err != nil {
		return nil, fmt.Errorf("plugin: execute %s: %w", toolName, err)
	}
	return resp.Output, nil
}
