package operator

import (
	"context"
	"time"

	"github.com/relayforge/agentrt/runtime/contextstrategy"
	"github.com/relayforge/agentrt/runtime/environment"
	"github.com/relayforge/agentrt/runtime/hook"
	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/relayforge/agentrt/runtime/provider"
	"github.com/relayforge/agentrt/runtime/telemetry"
	"github.com/relayforge/agentrt/runtime/tool"
)

// ReAct is the reference Operator implementation: resolve config, assemble
// context, advertise tool schemas, then loop turns of
// PreInference -> provider.Complete -> PostInference -> tool processing ->
// limit checks -> ExitCheck, compacting context between turns as needed.
type ReAct struct {
	Provider provider.Provider
	Tools    *tool.Registry
	Env      environment.Environment
	Hooks    *hook.Registry
	Context  contextstrategy.Strategy
	Config   Config

	Logger  telemetry.Logger
	Metrics telemetry.Metrics
}

// unlimited treats a zero or negative bound as "no limit", matching the
// zero value of an unconfigured Config field.
func unlimited[T int | time.Duration](v T) bool { return v <= 0 }

func (o *ReAct) Execute(ctx context.Context, in protocol.OperatorInput, history []protocol.Message) (protocol.OperatorOutput, error) {
	cfg := o.Config.resolve(in.Config)
	sink := streamSinkFrom(in)
	start := time.Now()

	messages := make([]protocol.Message, 0, len(history)+1)
	messages = append(messages, history...)
	if !in.Message.IsEmpty() {
		messages = append(messages, protocol.NewMessage(protocol.RoleUser, in.Message))
	}

	schemas := o.buildToolSchemas(cfg)

	var (
		effects     []protocol.Effect
		toolCalls   []protocol.ToolCallRecord
		aggTokensIn uint64
		aggTokensOut uint64
		aggCost     protocol.Decimal
		turn        int
	)

	for {
		turn++
		elapsed := time.Since(start)

		preAction, err := o.Hooks.Dispatch(ctx, protocol.HookContext{
			Point: protocol.PreInference, TurnsCompleted: turn - 1, Cost: aggCost, Elapsed: elapsed,
		})
		if err != nil {
			return protocol.OperatorOutput{}, protocol.NewOperatorError(protocol.ErrKindNonRetryable, "pre_inference hook failed", err)
		}
		if preAction.Kind == protocol.ActionHalt {
			return o.finish(messages, protocol.ObserverHalt(preAction.Reason), turn-1, aggTokensIn, aggTokensOut, aggCost, toolCalls, start, effects, turn == 1), nil
		}

		req := provider.Request{
			Model:     cfg.model,
			Messages:  messages,
			Tools:     schemas,
			MaxTokens: cfg.maxOutputTokens,
			System:    cfg.system,
			Extra:     in.Metadata,
		}
		resp, err := o.Provider.Complete(ctx, req)
		if err != nil {
			return protocol.OperatorOutput{}, classifyProviderError(err)
		}

		postAction, err := o.Hooks.Dispatch(ctx, protocol.HookContext{
			Point: protocol.PostInference, TurnsCompleted: turn, Cost: aggCost, Elapsed: time.Since(start),
			ModelOutput: &protocol.Content{Blocks: resp.Content},
		})
		if err != nil {
			return protocol.OperatorOutput{}, protocol.NewOperatorError(protocol.ErrKindNonRetryable, "post_inference hook failed", err)
		}

		aggTokensIn += resp.Usage.InputTokens
		aggTokensOut += resp.Usage.OutputTokens
		if resp.Cost != nil {
			aggCost = aggCost.Add(*resp.Cost)
		}

		assistant := protocol.NewMessage(protocol.RoleAssistant, protocol.Content{Blocks: resp.Content})
		messages = append(messages, assistant)
		if sink != nil {
			for _, b := range resp.Content {
				sink.OnBlock(ctx, b)
			}
		}

		if postAction.Kind == protocol.ActionHalt {
			return o.finish(messages, protocol.ObserverHalt(postAction.Reason), turn, aggTokensIn, aggTokensOut, aggCost, toolCalls, start, effects, false), nil
		}

		switch resp.StopReason {
		case provider.StopMaxTokens:
			return protocol.OperatorOutput{}, protocol.NewOperatorError(protocol.ErrKindModel, "output truncated: max_tokens", nil)
		case provider.StopContentFilter:
			return protocol.OperatorOutput{}, protocol.NewOperatorError(protocol.ErrKindModel, "content filtered", nil)
		case provider.StopToolUse:
			// fall through to tool processing below
		default:
			return o.finish(messages, protocol.Complete(), turn, aggTokensIn, aggTokensOut, aggCost, toolCalls, start, effects, false), nil
		}

		toolResults, newEffects, newRecords, haltReason, err := o.processToolUses(ctx, resp.Content, cfg)
		if err != nil {
			return protocol.OperatorOutput{}, err
		}
		effects = append(effects, newEffects...)
		toolCalls = append(toolCalls, newRecords...)
		if haltReason != "" {
			// messages still ends with the assistant turn appended above; the
			// tool-result message is deliberately not appended before this
			// return so the halt's output is the last assistant content, not
			// the tool results that triggered the halt.
			return o.finish(messages, protocol.ObserverHalt(haltReason), turn, aggTokensIn, aggTokensOut, aggCost, toolCalls, start, effects, false), nil
		}
		if len(toolResults) > 0 {
			messages = append(messages, protocol.NewMessage(protocol.RoleUser, protocol.BlocksContent(toolResults...)))
		}

		if !unlimited(cfg.maxTurns) && turn >= cfg.maxTurns {
			return o.finish(messages, protocol.MaxTurns(), turn, aggTokensIn, aggTokensOut, aggCost, toolCalls, start, effects, false), nil
		}
		if cfg.maxCost.Micros > 0 && aggCost.Cmp(cfg.maxCost) >= 0 {
			return o.finish(messages, protocol.BudgetExhausted(), turn, aggTokensIn, aggTokensOut, aggCost, toolCalls, start, effects, false), nil
		}
		if !unlimited(cfg.maxDuration) && time.Since(start) >= cfg.maxDuration {
			return o.finish(messages, protocol.Timeout(), turn, aggTokensIn, aggTokensOut, aggCost, toolCalls, start, effects, false), nil
		}

		exitAction, err := o.Hooks.Dispatch(ctx, protocol.HookContext{
			Point: protocol.ExitCheck, TurnsCompleted: turn, Cost: aggCost, Elapsed: time.Since(start),
		})
		if err != nil {
			return protocol.OperatorOutput{}, protocol.NewOperatorError(protocol.ErrKindNonRetryable, "exit_check hook failed", err)
		}
		if exitAction.Kind == protocol.ActionHalt {
			return o.finish(messages, protocol.ObserverHalt(exitAction.Reason), turn, aggTokensIn, aggTokensOut, aggCost, toolCalls, start, effects, false), nil
		}

		if o.Context != nil {
			limit := contextstrategy.TokenLimitFromMaxTokens(cfg.maxOutputTokens)
			if o.Context.ShouldCompact(messages, limit) {
				messages = o.Context.Compact(messages)
			}
		}
	}
}

func (o *ReAct) buildToolSchemas(cfg resolved) []provider.ToolSchema {
	var out []provider.ToolSchema
	o.Tools.Iter(func(t tool.Tool) {
		if !cfg.toolAllowed(t.Name()) {
			return
		}
		out = append(out, provider.ToolSchema{Name: t.Name(), Description: t.Description(), InputSchema: t.InputSchema()})
	})
	for _, e := range effectToolSchemas() {
		if !cfg.toolAllowed(e.Name) {
			continue
		}
		out = append(out, provider.ToolSchema{Name: e.Name, Description: e.Description, InputSchema: e.Schema})
	}
	return out
}

// processToolUses runs every ToolUseBlock in resp.Content in order,
// returning the grouped ToolResult blocks, any declared Effects, per-call
// records, and a non-empty haltReason if a hook requested a halt mid-turn.
func (o *ReAct) processToolUses(ctx context.Context, blocks []protocol.Block, cfg resolved) ([]protocol.Block, []protocol.Effect, []protocol.ToolCallRecord, string, error) {
	var (
		results []protocol.Block
		effects []protocol.Effect
		records []protocol.ToolCallRecord
	)

	for _, b := range blocks {
		if b.Kind != protocol.BlockToolUse || b.ToolUse == nil {
			continue
		}
		use := b.ToolUse
		callStart := time.Now()

		input := use.InputJSON

		if isEffectTool(use.Name) {
			var (
				resultContent string
				isError       bool
			)
			eff, ack, err := handleEffectTool(use.Name, input)
			if err != nil {
				resultContent, isError = "invalid effect-tool input: "+err.Error(), true
			} else {
				effects = append(effects, eff)
				resultContent = ack
			}
			results = append(results, protocol.ToolResultBlockOf(use.ID, resultContent, isError))
			records = append(records, protocol.ToolCallRecord{Name: use.Name, CallID: use.ID, Duration: time.Since(callStart), Success: !isError})
			continue
		}

		preAction, err := o.Hooks.Dispatch(ctx, protocol.HookContext{
			Point: protocol.PreToolUse, ToolName: use.Name, ToolInput: input,
		})
		if err != nil {
			return nil, nil, nil, "", protocol.NewOperatorError(protocol.ErrKindNonRetryable, "pre_tool_use hook failed", err)
		}
		switch preAction.Kind {
		case protocol.ActionHalt:
			return results, effects, records, preAction.Reason, nil
		case protocol.ActionSkipTool:
			results = append(results, protocol.ToolResultBlockOf(use.ID, "skipped: "+preAction.Reason, false))
			records = append(records, protocol.ToolCallRecord{Name: use.Name, CallID: use.ID, Duration: time.Since(callStart), Success: false})
			continue
		case protocol.ActionModifyToolInput:
			input = preAction.NewToolInput
		}

		var (
			resultContent string
			isError       bool
		)

		switch {
		case !cfg.toolAllowed(use.Name):
			resultContent, isError = "tool not allowed in this invocation: "+use.Name, true
		default:
			out, err := o.Env.Execute(ctx, use.Name, input, nil)
			if err != nil {
				resultContent, isError = errorToolMessage(err), true
			} else {
				resultContent = string(out)
			}
		}

		toolResult := &protocol.ToolResultBlock{ToolUseID: use.ID, Content: resultContent, IsError: isError}
		postAction, err := o.Hooks.Dispatch(ctx, protocol.HookContext{
			Point: protocol.PostToolUse, ToolName: use.Name, ToolResult: toolResult,
		})
		if err != nil {
			return nil, nil, nil, "", protocol.NewOperatorError(protocol.ErrKindNonRetryable, "post_tool_use hook failed", err)
		}
		if postAction.Kind == protocol.ActionModifyToolOutput {
			toolResult.Content = postAction.NewToolOutput
		}

		results = append(results, protocol.Block{Kind: protocol.BlockToolResult, ToolResult: toolResult})
		records = append(records, protocol.ToolCallRecord{Name: use.Name, CallID: use.ID, Duration: time.Since(callStart), Success: !isError})

		if postAction.Kind == protocol.ActionHalt {
			return results, effects, records, postAction.Reason, nil
		}
	}
	return results, effects, records, "", nil
}

func errorToolMessage(err error) string {
	if te, ok := protocol.AsToolError(err); ok {
		return te.Error()
	}
	return err.Error()
}

func classifyProviderError(err error) *protocol.OperatorError {
	perr, ok := provider.AsProviderError(err)
	if !ok {
		return protocol.NewOperatorError(protocol.ErrKindNonRetryable, err.Error(), err)
	}
	if perr.IsRetryable() {
		return protocol.NewOperatorError(protocol.ErrKindRetryable, perr.Error(), perr)
	}
	return protocol.NewOperatorError(protocol.ErrKindNonRetryable, perr.Error(), perr)
}

// finish assembles the OperatorOutput. emptyOnHalt implements the
// PreInference-halt-at-turn-1 decision: halting before any model output has
// ever been produced yields empty Content rather than echoing the input.
func (o *ReAct) finish(
	messages []protocol.Message,
	reason protocol.ExitReason,
	turnsUsed int,
	tokensIn, tokensOut uint64,
	cost protocol.Decimal,
	toolCalls []protocol.ToolCallRecord,
	start time.Time,
	effects []protocol.Effect,
	emptyOnHalt bool,
) protocol.OperatorOutput {
	var message protocol.Content
	if emptyOnHalt {
		message = protocol.Content{}
	} else if len(messages) > 0 {
		message = messages[len(messages)-1].Content
	}
	return protocol.OperatorOutput{
		Message:    message,
		ExitReason: reason,
		Metadata: protocol.OperatorMetadata{
			TokensIn:    tokensIn,
			TokensOut:   tokensOut,
			Cost:        cost,
			TurnsUsed:   turnsUsed,
			ToolsCalled: toolCalls,
			Duration:    time.Since(start),
		},
		Effects: effects,
	}
}
