// Package temporal supplies a durable Dispatch path on top of
// go.temporal.io/sdk: every orchestrator.Dispatch call becomes a Temporal
// workflow execution whose single activity runs the in-memory
// orchestrator.Orchestrator, so the execution is recorded and recovered by
// the Temporal cluster. The activity runs with a single attempt: retries of
// retryable operator errors stay with the Orchestrator's own retry policy.
package temporal

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/relayforge/agentrt/runtime/orchestrator"
	"github.com/relayforge/agentrt/runtime/protocol"
)

// WorkflowName and ActivityName identify the registered Temporal workflow
// and activity, used both at registration time and when starting executions.
const (
	WorkflowName = "agentrt.Dispatch"
	ActivityName = "agentrt.ExecuteAgent"
)

// DispatchRequest is the workflow/activity input, the same triple
// orchestrator.Dispatch takes, flattened into a struct so Temporal's default
// JSON data converter can serialize it across the workflow/activity
// boundary.
type DispatchRequest struct {
	Agent   protocol.AgentID       `json:"agent"`
	Input   protocol.OperatorInput `json:"input"`
	History []protocol.Message     `json:"history,omitempty"`
}

// Options configures the Engine. Client and TaskQueue are required; the
// rest have defaults matching what most callers want: a single worker,
// auto-started, with Temporal's own activity retries disabled by default
// since the wrapped Orchestrator already implements its own backoff for
// retryable operator errors, and compounding both would multiply delays.
type Options struct {
	Client                 client.Client
	TaskQueue              string
	WorkerOptions          worker.Options
	ActivityStartToClose   time.Duration
	DisableWorkerAutoStart bool
}

func (o Options) withDefaults() Options {
	if o.ActivityStartToClose == 0 {
		o.ActivityStartToClose = 5 * time.Minute
	}
	return o
}

// Engine wires an orchestrator.Orchestrator into a Temporal worker and
// exposes a Dispatch method with the same shape as Orchestrator.Dispatch,
// backed by a durable workflow execution instead of an in-process call.
type Engine struct {
	opts   Options
	w      worker.Worker
}

// New builds an Engine around orch and, unless DisableWorkerAutoStart is
// set, starts a background worker polling TaskQueue.
func New(orch *orchestrator.Orchestrator, opts Options) (*Engine, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("temporal: Options.Client is required")
	}
	if opts.TaskQueue == "" {
		return nil, fmt.Errorf("temporal: Options.TaskQueue is required")
	}
	opts = opts.withDefaults()

	w := worker.New(opts.Client, opts.TaskQueue, opts.WorkerOptions)
	w.RegisterWorkflowWithOptions(dispatchWorkflow, workflow.RegisterOptions{Name: WorkflowName})
	acts := &activities{orch: orch}
	w.RegisterActivityWithOptions(acts.ExecuteAgent, activity.RegisterOptions{Name: ActivityName})

	e := &Engine{opts: opts, w: w}
	if !opts.DisableWorkerAutoStart {
		if err := w.Start(); err != nil {
			return nil, fmt.Errorf("temporal: start worker: %w", err)
		}
	}
	return e, nil
}

// Stop shuts the background worker down. Safe to call even if the worker
// was never started (DisableWorkerAutoStart).
func (e *Engine) Stop() {
	e.w.Stop()
}

// Dispatch starts a Temporal workflow execution running req through the
// orchestrator and blocks for its result. workflowID should be stable per
// logical invocation (e.g. derived from the session id) when callers want
// Temporal's own workflow-id-reuse protection against duplicate dispatch;
// an empty id lets Temporal generate one.
func (e *Engine) Dispatch(ctx context.Context, workflowID string, agent protocol.AgentID, in protocol.OperatorInput, history []protocol.Message) (protocol.OperatorOutput, error) {
	startOpts := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: e.opts.TaskQueue,
	}
	req := DispatchRequest{Agent: agent, Input: in, History: history}

	run, err := e.opts.Client.ExecuteWorkflow(ctx, startOpts, WorkflowName, req)
	if err != nil {
		return protocol.OperatorOutput{}, fmt.Errorf("temporal: start workflow: %w", err)
	}
	var out protocol.OperatorOutput
	if err := run.Get(ctx, &out); err != nil {
		return protocol.OperatorOutput{}, err
	}
	return out, nil
}

// dispatchWorkflow is the durable workflow function: it runs the single
// ExecuteAgent activity and returns its result verbatim. Effect application
// (orchestrator.Dispatch's job) happens inside the activity, since it talks
// to the state store and must not be replayed by the workflow itself.
func dispatchWorkflow(ctx workflow.Context, req DispatchRequest) (protocol.OperatorOutput, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &sdktemporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var out protocol.OperatorOutput
	err := workflow.ExecuteActivity(ctx, ActivityName, req).Get(ctx, &out)
	return out, err
}

// activities hosts the Temporal activity implementation. It is a distinct
// type from Engine so the activity can be registered on a worker process
// that does not itself run the workflow, a common split for horizontal
// scaling of CPU-bound agent turns versus cheap workflow-history replay.
type activities struct {
	orch *orchestrator.Orchestrator
}

// ExecuteAgent is the Temporal activity: a thin adapter to
// Orchestrator.Dispatch, using the activity's context for cancellation.
func (a *activities) ExecuteAgent(ctx context.Context, req DispatchRequest) (protocol.OperatorOutput, error) {
	return a.orch.Dispatch(ctx, req.Agent, req.Input, req.History)
}
