package protocol

import (
	"encoding/json"
	"time"
)

// HookPoint names a defined point in the reasoning loop where hooks observe
// or intervene.
type HookPoint string

const (
	PreInference  HookPoint = "pre_inference"
	PostInference HookPoint = "post_inference"
	PreToolUse    HookPoint = "pre_tool_use"
	PostToolUse   HookPoint = "post_tool_use"
	ExitCheck     HookPoint = "exit_check"
)

// HookContext is passed to hooks at each HookPoint.
type HookContext struct {
	Point HookPoint

	ToolName     string
	ToolInput    json.RawMessage
	ToolResult   *ToolResultBlock
	ModelOutput  *Content
	TokensUsed   uint64
	Cost         Decimal
	TurnsCompleted int
	Elapsed      time.Duration
}

// HookActionKind discriminates the variant carried by a HookAction.
type HookActionKind string

const (
	ActionContinue         HookActionKind = "continue"
	ActionHalt             HookActionKind = "halt"
	ActionSkipTool         HookActionKind = "skip_tool"
	ActionModifyToolInput  HookActionKind = "modify_tool_input"
	ActionModifyToolOutput HookActionKind = "modify_tool_output"
)

// HookAction is a hook's return value.
type HookAction struct {
	Kind HookActionKind

	Reason        string          // ActionHalt, ActionSkipTool
	NewToolInput  json.RawMessage // ActionModifyToolInput
	NewToolOutput string          // ActionModifyToolOutput
}

func Continue() HookAction { return HookAction{Kind: ActionContinue} }
func Halt(reason string) HookAction {
	return HookAction{Kind: ActionHalt, Reason: reason}
}
func SkipTool(reason string) HookAction {
	return HookAction{Kind: ActionSkipTool, Reason: reason}
}
func ModifyToolInput(newInput json.RawMessage) HookAction {
	return HookAction{Kind: ActionModifyToolInput, NewToolInput: newInput}
}
func ModifyToolOutput(newOutput string) HookAction {
	return HookAction{Kind: ActionModifyToolOutput, NewToolOutput: newOutput}
}
