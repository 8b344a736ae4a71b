package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/relayforge/agentrt/runtime/session"
	"github.com/stretchr/testify/require"
)

func TestCreateIsIdempotentForActiveSession(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := protocol.SessionID("s1")

	a, err := s.Create(ctx, id, time.Now())
	require.NoError(t, err)
	b, err := s.Create(ctx, id, time.Now())
	require.NoError(t, err)
	require.Equal(t, a.CreatedAt, b.CreatedAt)
}

func TestCreateAfterEndReturnsErrSessionEnded(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := protocol.SessionID("s2")
	_, err := s.Create(ctx, id, time.Now())
	require.NoError(t, err)
	_, err = s.End(ctx, id, time.Now())
	require.NoError(t, err)

	_, err = s.Create(ctx, id, time.Now())
	require.ErrorIs(t, err, session.ErrSessionEnded)
}

func TestLoadMissingSessionIsNotFound(t *testing.T) {
	s := New()
	_, err := s.Load(context.Background(), protocol.SessionID("nope"))
	require.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestUpsertInvocationPreservesStartedAt(t *testing.T) {
	s := New()
	ctx := context.Background()
	started := time.Now().Add(-time.Minute)
	err := s.UpsertInvocation(ctx, session.InvocationMeta{
		AgentID: "agent-1", SessionID: "s3", Status: session.InvocationRunning, StartedAt: started,
	}, "inv-1")
	require.NoError(t, err)

	err = s.UpsertInvocation(ctx, session.InvocationMeta{
		AgentID: "agent-1", SessionID: "s3", Status: session.InvocationCompleted,
	}, "inv-1")
	require.NoError(t, err)

	inv, err := s.LoadInvocation(ctx, "inv-1")
	require.NoError(t, err)
	require.Equal(t, started, inv.StartedAt)
	require.Equal(t, session.InvocationCompleted, inv.Status)
}

func TestListInvocationsFiltersByStatus(t *testing.T) {
	s := New()
	ctx := context.Background()
	sid := protocol.SessionID("s4")
	require.NoError(t, s.UpsertInvocation(ctx, session.InvocationMeta{AgentID: "a", SessionID: sid, Status: session.InvocationRunning}, "i1"))
	require.NoError(t, s.UpsertInvocation(ctx, session.InvocationMeta{AgentID: "a", SessionID: sid, Status: session.InvocationCompleted}, "i2"))

	out, err := s.ListInvocations(ctx, sid, []session.InvocationStatus{session.InvocationCompleted})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, session.InvocationCompleted, out[0].Status)
}
