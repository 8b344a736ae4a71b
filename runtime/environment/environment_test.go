package environment

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/relayforge/agentrt/runtime/tool"
	"github.com/stretchr/testify/require"
)

func echoTool() tool.Tool {
	return tool.NewFunc("echo", "echoes input", json.RawMessage(`{}`),
		func(_ context.Context, input json.RawMessage) (json.RawMessage, error) {
			return input, nil
		})
}

func TestInProcessExecuteRunsRegisteredTool(t *testing.T) {
	reg := tool.New()
	reg.Register(echoTool())
	env := NewInProcess(reg)

	out, err := env.Execute(context.Background(), "echo", []byte(`{"a":1}`), nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(out))
}

func TestInProcessExecuteSurfacesToolError(t *testing.T) {
	reg := tool.New()
	env := NewInProcess(reg)

	_, err := env.Execute(context.Background(), "missing", []byte(`{}`), nil)
	require.Error(t, err)
}
