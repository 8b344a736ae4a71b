package operator

import (
	"encoding/json"

	"github.com/relayforge/agentrt/runtime/protocol"
)

// Reserved tool names the reasoning loop intercepts before they ever reach
// the tool.Registry: a model-issued call to one of these produces a
// protocol.Effect instead of an actual tool invocation.
const (
	effectToolWriteMemory  = "write_memory"
	effectToolDeleteMemory = "delete_memory"
	effectToolDelegate     = "delegate"
	effectToolHandoff      = "handoff"
	effectToolSignal       = "signal"
)

var effectToolNames = map[string]bool{
	effectToolWriteMemory:  true,
	effectToolDeleteMemory: true,
	effectToolDelegate:     true,
	effectToolHandoff:      true,
	effectToolSignal:       true,
}

func isEffectTool(name string) bool { return effectToolNames[name] }

// effectToolSchemas describes the five reserved tools so they can be
// advertised to the provider alongside registered tools.
func effectToolSchemas() []toolSchemaEntry {
	return []toolSchemaEntry{
		{
			Name:        effectToolWriteMemory,
			Description: "Persist a value under a scoped key for later recall.",
			Schema: json.RawMessage(`{
				"type":"object",
				"properties":{
					"scope":{"type":"string","description":"global | session:<id> | workflow:<id> | custom scope string"},
					"key":{"type":"string"},
					"value":{}
				},
				"required":["scope","key","value"]
			}`),
		},
		{
			Name:        effectToolDeleteMemory,
			Description: "Delete a previously written scoped key.",
			Schema: json.RawMessage(`{
				"type":"object",
				"properties":{"scope":{"type":"string"},"key":{"type":"string"}},
				"required":["scope","key"]
			}`),
		},
		{
			Name:        effectToolDelegate,
			Description: "Dispatch a child invocation to another agent and continue without waiting inline.",
			Schema: json.RawMessage(`{
				"type":"object",
				"properties":{"agent":{"type":"string"},"message":{"type":"string"}},
				"required":["agent","message"]
			}`),
		},
		{
			Name:        effectToolHandoff,
			Description: "Transfer the active workflow routing pointer to another agent.",
			Schema: json.RawMessage(`{
				"type":"object",
				"properties":{"agent":{"type":"string"},"state":{}},
				"required":["agent"]
			}`),
		},
		{
			Name:        effectToolSignal,
			Description: "Enqueue a payload on another workflow's signal queue.",
			Schema: json.RawMessage(`{
				"type":"object",
				"properties":{"target_workflow":{"type":"string"},"payload":{}},
				"required":["target_workflow","payload"]
			}`),
		},
	}
}

type toolSchemaEntry struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// handleEffectTool translates a model-issued effect-tool call into a
// protocol.Effect plus a synthetic acknowledgement ToolResult content
// string. It never touches the tool.Registry or environment.Environment.
func handleEffectTool(name string, inputJSON json.RawMessage) (protocol.Effect, string, error) {
	switch name {
	case effectToolWriteMemory:
		var in struct {
			Scope string `json:"scope"`
			Key   string `json:"key"`
			Value any    `json:"value"`
		}
		if err := json.Unmarshal(inputJSON, &in); err != nil {
			return protocol.Effect{}, "", err
		}
		return protocol.WriteMemory(protocol.ParseScope(in.Scope), in.Key, in.Value), "recorded", nil

	case effectToolDeleteMemory:
		var in struct {
			Scope string `json:"scope"`
			Key   string `json:"key"`
		}
		if err := json.Unmarshal(inputJSON, &in); err != nil {
			return protocol.Effect{}, "", err
		}
		return protocol.DeleteMemory(protocol.ParseScope(in.Scope), in.Key), "deleted", nil

	case effectToolDelegate:
		var in struct {
			Agent   string `json:"agent"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(inputJSON, &in); err != nil {
			return protocol.Effect{}, "", err
		}
		childInput := protocol.OperatorInput{
			Message: protocol.TextContent(in.Message),
			Trigger: protocol.TriggerTask,
		}
		return protocol.Delegate(protocol.AgentID(in.Agent), childInput), "delegated", nil

	case effectToolHandoff:
		var in struct {
			Agent string `json:"agent"`
			State any    `json:"state"`
		}
		if err := json.Unmarshal(inputJSON, &in); err != nil {
			return protocol.Effect{}, "", err
		}
		return protocol.Handoff(protocol.AgentID(in.Agent), in.State), "handed off", nil

	case effectToolSignal:
		var in struct {
			TargetWorkflow string `json:"target_workflow"`
			Payload        any    `json:"payload"`
		}
		if err := json.Unmarshal(inputJSON, &in); err != nil {
			return protocol.Effect{}, "", err
		}
		return protocol.Signal(protocol.WorkflowID(in.TargetWorkflow), in.Payload), "signalled", nil

	default:
		panic("operator: handleEffectTool called with non-effect tool name " + name)
	}
}
