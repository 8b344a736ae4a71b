package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func echoTool() *Func {
	return NewFunc("echo", "echoes input", json.RawMessage(`{"type":"object"}`),
		func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
			return json.Marshal(map[string]json.RawMessage{"echoed": input})
		})
}

func TestRegistryOverwriteOnDuplicateName(t *testing.T) {
	r := New()
	r.Register(echoTool())
	require.Equal(t, 1, r.Len())
	r.Register(echoTool())
	require.Equal(t, 1, r.Len())
}

func TestRegistryExecuteNotFound(t *testing.T) {
	r := New()
	_, err := r.Execute(context.Background(), "missing", json.RawMessage(`{}`), "tu1")
	require.Error(t, err)
}

func TestRegistryMiddlewareOrderGlobalThenPerTool(t *testing.T) {
	r := New()
	r.Register(echoTool())

	var order []string
	r.Use(func(ctx context.Context, call Call, next Next) (Result, error) {
		order = append(order, "global")
		return next.Run(ctx, call)
	})
	r.UseFor("echo", func(ctx context.Context, call Call, next Next) (Result, error) {
		order = append(order, "per-tool")
		return next.Run(ctx, call)
	})

	res, err := r.Execute(context.Background(), "echo", json.RawMessage(`{"x":1}`), "tu1")
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Equal(t, []string{"global", "per-tool"}, order)
}

func TestMiddlewareShortCircuit(t *testing.T) {
	r := New()
	r.Register(echoTool())
	r.Use(func(ctx context.Context, call Call, next Next) (Result, error) {
		return Result{IsError: true, ErrorMessage: "blocked"}, nil
	})
	res, err := r.Execute(context.Background(), "echo", json.RawMessage(`{}`), "tu1")
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Equal(t, "blocked", res.ErrorMessage)
}

func TestNextPanicsIfCalledTwice(t *testing.T) {
	n := &nextFunc{fn: func(ctx context.Context, call Call) (Result, error) { return Result{}, nil }}
	_, _ = n.Run(context.Background(), Call{})
	require.Panics(t, func() {
		_, _ = n.Run(context.Background(), Call{})
	})
}

func TestTruncateOutputMiddleware(t *testing.T) {
	r := New()
	r.Register(NewFunc("big", "", nil, func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`"0123456789"`), nil
	}))
	r.Use(TruncateOutput(5))
	res, err := r.Execute(context.Background(), "big", json.RawMessage(`{}`), "tu1")
	require.NoError(t, err)
	require.Len(t, res.Output, 5)
}
