// Package tiktoken supplies a contextstrategy.TokenCounter backed by
// github.com/pkoukk/tiktoken-go, giving callers a model-aware token count
// instead of the core's conservative character heuristic.
package tiktoken

import (
	"sync"

	tk "github.com/pkoukk/tiktoken-go"

	"github.com/relayforge/agentrt/runtime/protocol"
)

// Counter estimates token counts using a named tiktoken encoding, lazily
// loaded once and reused for every Estimate call.
type Counter struct {
	encodingName string

	once sync.Once
	enc  *tk.Tiktoken
	err  error
}

// NewCounter builds a Counter for the given tiktoken encoding name (e.g.
// "cl100k_base" for GPT-3.5/4-family models, "o200k_base" for GPT-4o).
func NewCounter(encodingName string) *Counter {
	if encodingName == "" {
		encodingName = "cl100k_base"
	}
	return &Counter{encodingName: encodingName}
}

// NewCounterForModel builds a Counter using the encoding tiktoken-go
// associates with the named model, falling back to cl100k_base if the model
// is unrecognized.
func NewCounterForModel(model string) *Counter {
	enc, err := tk.EncodingForModel(model)
	if err != nil || enc == "" {
		return NewCounter("cl100k_base")
	}
	return NewCounter(enc)
}

func (c *Counter) encoder() (*tk.Tiktoken, error) {
	c.once.Do(func() {
		c.enc, c.err = tk.GetEncoding(c.encodingName)
	})
	return c.enc, c.err
}

// Estimate implements contextstrategy.TokenCounter. On encoder
// initialization failure it falls back to the same byte/4 heuristic the
// core's CharHeuristicCounter uses, so a missing BPE data file degrades
// gracefully rather than panicking mid-invocation.
func (c *Counter) Estimate(messages []protocol.Message) uint64 {
	enc, err := c.encoder()
	if err != nil {
		return contextstrategyFallback(messages)
	}
	var total uint64
	for _, m := range messages {
		total += uint64(len(enc.Encode(m.Content.String(), nil, nil)))
	}
	return total
}

func contextstrategyFallback(messages []protocol.Message) uint64 {
	var total uint64
	for _, m := range messages {
		total += uint64(len(m.Content.String()))
	}
	return total / 4
}
