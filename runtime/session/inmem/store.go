// Package inmem provides an in-memory session.Store for tests and local
// development. Production deployments should use a durable adapter (for
// example features/state/redis or features/state/mongo backing an
// orchestrator-level session store).
package inmem

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/relayforge/agentrt/runtime/session"
)

// Store is an in-memory, concurrency-safe session.Store.
type Store struct {
	mu          sync.RWMutex
	sessions    map[protocol.SessionID]session.Session
	invocations map[string]session.InvocationMeta
}

func New() *Store {
	return &Store{
		sessions:    make(map[protocol.SessionID]session.Session),
		invocations: make(map[string]session.InvocationMeta),
	}
}

func (s *Store) Create(_ context.Context, id protocol.SessionID, createdAt time.Time) (session.Session, error) {
	if id == "" {
		return session.Session{}, errors.New("inmem: session id is required")
	}
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[id]; ok {
		if existing.Status == session.StatusEnded {
			return session.Session{}, session.ErrSessionEnded
		}
		return cloneSession(existing), nil
	}
	out := session.Session{ID: id, Status: session.StatusActive, CreatedAt: createdAt.UTC()}
	s.sessions[id] = out
	return cloneSession(out), nil
}

func (s *Store) Load(_ context.Context, id protocol.SessionID) (session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	existing, ok := s.sessions[id]
	if !ok {
		return session.Session{}, session.ErrSessionNotFound
	}
	return cloneSession(existing), nil
}

func (s *Store) End(_ context.Context, id protocol.SessionID, endedAt time.Time) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.sessions[id]
	if !ok {
		return session.Session{}, session.ErrSessionNotFound
	}
	if existing.Status == session.StatusEnded {
		return cloneSession(existing), nil
	}
	at := endedAt.UTC()
	existing.Status = session.StatusEnded
	existing.EndedAt = &at
	s.sessions[id] = existing
	return cloneSession(existing), nil
}

func (s *Store) UpsertInvocation(_ context.Context, inv session.InvocationMeta, invocationID string) error {
	if invocationID == "" {
		return errors.New("inmem: invocation id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.invocations[invocationID]; ok && !existing.StartedAt.IsZero() {
		if inv.StartedAt.IsZero() {
			inv.StartedAt = existing.StartedAt
		} else if !inv.StartedAt.Equal(existing.StartedAt) {
			return errors.New("inmem: started_at is immutable")
		}
	} else if inv.StartedAt.IsZero() {
		inv.StartedAt = now
	}
	inv.UpdatedAt = now
	s.invocations[invocationID] = cloneInvocation(inv)
	return nil
}

func (s *Store) LoadInvocation(_ context.Context, invocationID string) (session.InvocationMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invocations[invocationID]
	if !ok {
		return session.InvocationMeta{}, session.ErrInvocationNotFound
	}
	return cloneInvocation(inv), nil
}

func (s *Store) ListInvocations(_ context.Context, id protocol.SessionID, statuses []session.InvocationStatus) ([]session.InvocationMeta, error) {
	var allowed map[session.InvocationStatus]struct{}
	if len(statuses) > 0 {
		allowed = make(map[session.InvocationStatus]struct{}, len(statuses))
		for _, st := range statuses {
			allowed[st] = struct{}{}
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]session.InvocationMeta, 0, len(s.invocations))
	for _, inv := range s.invocations {
		if inv.SessionID != id {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[inv.Status]; !ok {
				continue
			}
		}
		out = append(out, cloneInvocation(inv))
	}
	return out, nil
}

func cloneSession(in session.Session) session.Session {
	out := in
	if in.EndedAt != nil {
		at := *in.EndedAt
		out.EndedAt = &at
	}
	return out
}

func cloneInvocation(in session.InvocationMeta) session.InvocationMeta {
	out := in
	if len(in.Labels) > 0 {
		out.Labels = make(map[string]string, len(in.Labels))
		for k, v := range in.Labels {
			out.Labels[k] = v
		}
	}
	if in.ExitReason != nil {
		reason := *in.ExitReason
		out.ExitReason = &reason
	}
	return out
}
