// Package cron turns cron expressions (github.com/robfig/cron/v3) into
// recurring protocol.TriggerSchedule dispatches, the time-based counterpart
// to the signal- and task-triggered paths the orchestrator already serves.
package cron

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/relayforge/agentrt/runtime/orchestrator"
	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/relayforge/agentrt/runtime/telemetry"
)

// DispatchFunc is called once per schedule firing.
type DispatchFunc func(ctx context.Context) error

// Scheduler owns a cron.Cron instance and a set of agent dispatches
// registered against it.
type Scheduler struct {
	c      *cron.Cron
	logger telemetry.Logger
}

// New builds a Scheduler. Standard five-field cron expressions are parsed
// (seconds are not supported), matching the most common convention in the
// ecosystem.
func New(logger telemetry.Logger) *Scheduler {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Scheduler{c: cron.New(), logger: logger}
}

// AddAgentDispatch registers a cron expression that dispatches agent with
// the given message and protocol.TriggerSchedule every time it fires.
// Returns the cron.EntryID so the caller can Remove it later.
func (s *Scheduler) AddAgentDispatch(spec string, orch *orchestrator.Orchestrator, agent protocol.AgentID, message protocol.Content) (cron.EntryID, error) {
	return s.c.AddFunc(spec, func() {
		ctx := context.Background()
		in := protocol.OperatorInput{Message: message, Trigger: protocol.TriggerSchedule}
		if _, err := orch.Dispatch(ctx, agent, in, nil); err != nil {
			s.logger.Error(ctx, "scheduled dispatch failed", "agent", string(agent), "error", err.Error())
		}
	})
}

// AddFunc registers an arbitrary DispatchFunc against a cron expression,
// for callers that want schedule-triggered behavior other than a plain
// agent dispatch (e.g. emitting a Signal effect instead).
func (s *Scheduler) AddFunc(spec string, fn DispatchFunc) (cron.EntryID, error) {
	return s.c.AddFunc(spec, func() {
		ctx := context.Background()
		if err := fn(ctx); err != nil {
			s.logger.Error(ctx, "scheduled func failed", "error", err.Error())
		}
	})
}

// Remove cancels a previously registered entry.
func (s *Scheduler) Remove(id cron.EntryID) {
	s.c.Remove(id)
}

// Start begins running the scheduler in a background goroutine.
func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop halts the scheduler without waiting for in-flight jobs; the returned
// context is Done once any job still running has finished.
func (s *Scheduler) Stop() context.Context {
	return s.c.Stop()
}
