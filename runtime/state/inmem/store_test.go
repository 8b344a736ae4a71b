package inmem

import (
	"context"
	"testing"

	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/relayforge/agentrt/runtime/state"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	s := New()
	scope := protocol.SessionScope("sess-1")
	ctx := context.Background()

	v, err := s.Write(ctx, scope, "k", []byte("v1"), 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), v)

	e, err := s.Read(ctx, scope, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), e.Value)
	require.Equal(t, uint64(1), e.Version)
}

func TestWriteConflictOnStaleVersion(t *testing.T) {
	s := New()
	scope := protocol.GlobalScope()
	ctx := context.Background()

	_, err := s.Write(ctx, scope, "k", []byte("v1"), 0)
	require.NoError(t, err)

	_, err = s.Write(ctx, scope, "k", []byte("v2"), 0)
	require.ErrorIs(t, err, state.ErrVersionConflict)

	_, err = s.Write(ctx, scope, "k", []byte("v2"), 1)
	require.NoError(t, err)
}

func TestReadMissingIsNotFound(t *testing.T) {
	s := New()
	_, err := s.Read(context.Background(), protocol.GlobalScope(), "missing")
	require.ErrorIs(t, err, state.ErrNotFound)
}

func TestDeleteRequiresMatchingVersion(t *testing.T) {
	s := New()
	scope := protocol.WorkflowScope("wf-1")
	ctx := context.Background()
	v, err := s.Write(ctx, scope, "k", []byte("v1"), 0)
	require.NoError(t, err)

	err = s.Delete(ctx, scope, "k", v-1)
	require.ErrorIs(t, err, state.ErrVersionConflict)

	err = s.Delete(ctx, scope, "k", v)
	require.NoError(t, err)

	_, err = s.Read(ctx, scope, "k")
	require.ErrorIs(t, err, state.ErrNotFound)
}

func TestListScopesIndependently(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _ = s.Write(ctx, protocol.SessionScope("a"), "k1", []byte("1"), 0)
	_, _ = s.Write(ctx, protocol.SessionScope("a"), "k2", []byte("2"), 0)
	_, _ = s.Write(ctx, protocol.SessionScope("b"), "k1", []byte("3"), 0)

	entries, err := s.List(ctx, protocol.SessionScope("a"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
