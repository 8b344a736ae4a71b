package hook

import (
	"context"
	"regexp"
	"strings"

	"github.com/relayforge/agentrt/runtime/protocol"
)

// CostCap halts the invocation once accumulated cost exceeds Limit. It only
// acts at ExitCheck; at other points it is a pass-through.
type CostCap struct {
	Limit protocol.Decimal
}

func (c CostCap) OnEvent(_ context.Context, hctx protocol.HookContext) (protocol.HookAction, error) {
	if hctx.Point != protocol.ExitCheck {
		return protocol.Continue(), nil
	}
	if hctx.Cost.Cmp(c.Limit) > 0 {
		return protocol.Halt("cost limit exceeded"), nil
	}
	return protocol.Continue(), nil
}

// OutputRedactor scans PostToolUse tool output for configured secret
// patterns and substitutes a redaction marker whenever one matches.
type OutputRedactor struct {
	Patterns []*regexp.Regexp
}

// NewOutputRedactor compiles Patterns as regular expressions. It panics on an
// invalid pattern — callers build the redactor once at startup.
func NewOutputRedactor(patterns ...string) *OutputRedactor {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return &OutputRedactor{Patterns: compiled}
}

func (r *OutputRedactor) OnEvent(_ context.Context, hctx protocol.HookContext) (protocol.HookAction, error) {
	if hctx.Point != protocol.PostToolUse || hctx.ToolResult == nil {
		return protocol.Continue(), nil
	}
	out := hctx.ToolResult.Content
	redacted := false
	for _, p := range r.Patterns {
		if p.MatchString(out) {
			out = p.ReplaceAllString(out, "[redacted]")
			redacted = true
		}
	}
	if !redacted {
		return protocol.Continue(), nil
	}
	return protocol.ModifyToolOutput(out), nil
}

// ExfiltrationGuard halts before a tool runs if its input contains an
// outbound destination matching one of Blocked hosts/substrings. It is
// deliberately simple pattern matching, not a network policy engine.
type ExfiltrationGuard struct {
	Blocked []string
}

func (g ExfiltrationGuard) OnEvent(_ context.Context, hctx protocol.HookContext) (protocol.HookAction, error) {
	if hctx.Point != protocol.PreToolUse {
		return protocol.Continue(), nil
	}
	input := string(hctx.ToolInput)
	for _, b := range g.Blocked {
		if b != "" && strings.Contains(input, b) {
			return protocol.Halt("blocked destination in tool input: " + b), nil
		}
	}
	return protocol.Continue(), nil
}
