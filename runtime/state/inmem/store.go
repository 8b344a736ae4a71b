// Package inmem provides an in-memory, concurrency-safe state.Store for
// tests, local development, and single-process orchestrators. Production
// deployments needing cross-process durability should use
// features/state/redis or features/state/mongo.
package inmem

import (
	"context"
	"sync"

	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/relayforge/agentrt/runtime/state"
)

type record struct {
	value   []byte
	version uint64
}

// Store is an in-memory state.Store. The zero value is not usable; use New.
type Store struct {
	mu   sync.Mutex
	data map[string]map[string]record
}

func New() *Store {
	return &Store{data: make(map[string]map[string]record)}
}

func (s *Store) Read(_ context.Context, scope protocol.Scope, key string) (state.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.data[scope.String()]
	if !ok {
		return state.Entry{}, state.ErrNotFound
	}
	rec, ok := bucket[key]
	if !ok {
		return state.Entry{}, state.ErrNotFound
	}
	return state.Entry{Scope: scope, Key: key, Value: cloneBytes(rec.value), Version: rec.version}, nil
}

func (s *Store) List(_ context.Context, scope protocol.Scope) ([]state.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.data[scope.String()]
	out := make([]state.Entry, 0, len(bucket))
	for k, rec := range bucket {
		out = append(out, state.Entry{Scope: scope, Key: k, Value: cloneBytes(rec.value), Version: rec.version})
	}
	return out, nil
}

func (s *Store) Write(_ context.Context, scope protocol.Scope, key string, value []byte, expectedVersion uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.data[scope.String()]
	if !ok {
		bucket = make(map[string]record)
		s.data[scope.String()] = bucket
	}
	current, exists := bucket[key]
	if exists {
		if current.version != expectedVersion {
			return 0, state.ErrVersionConflict
		}
	} else if expectedVersion != 0 {
		return 0, state.ErrVersionConflict
	}
	newVersion := current.version + 1
	bucket[key] = record{value: cloneBytes(value), version: newVersion}
	return newVersion, nil
}

func (s *Store) Delete(_ context.Context, scope protocol.Scope, key string, expectedVersion uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.data[scope.String()]
	if !ok {
		return state.ErrNotFound
	}
	current, exists := bucket[key]
	if !exists {
		return state.ErrNotFound
	}
	if current.version != expectedVersion {
		return state.ErrVersionConflict
	}
	delete(bucket, key)
	return nil
}

func cloneBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
