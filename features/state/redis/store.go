// Package redis implements state.Store on top of github.com/redis/go-redis/v9,
// using a Lua script to make the read-version/write-if-unchanged contract
// atomic without a round trip through a separate WATCH/MULTI transaction.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/relayforge/agentrt/runtime/state"
)

// casWriteScript stores value alongside a version counter under key, only
// succeeding when the caller's expectedVersion matches the stored version
// (0 meaning "must not exist yet"). Returns the new version, or -1 if the
// caller's expected version was stale.
const casWriteScript = `
local verKey = KEYS[1] .. ":v"
local current = tonumber(redis.call("GET", verKey) or "0")
local expected = tonumber(ARGV[1])
if current ~= expected then
  return -1
end
local nextVer = current + 1
redis.call("SET", KEYS[1], ARGV[2])
redis.call("SET", verKey, nextVer)
return nextVer
`

// casDeleteScript deletes key only if the stored version matches.
const casDeleteScript = `
local verKey = KEYS[1] .. ":v"
local current = tonumber(redis.call("GET", verKey) or "0")
local expected = tonumber(ARGV[1])
if current ~= expected then
  return -1
end
redis.call("DEL", KEYS[1])
redis.call("DEL", verKey)
return 1
`

// Client is the subset of *redis.Client the store needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Keys(ctx context.Context, pattern string) *redis.StringSliceCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// Store implements state.Store over a Redis keyspace, namespacing every key
// as "<prefix>:<scope>:<key>" so multiple modules can safely share one
// Redis database.
type Store struct {
	rdb    Client
	prefix string
}

// New builds a Store backed by rdb, namespacing keys under prefix (e.g. the
// service name).
func New(rdb Client, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) namespacedKey(scope protocol.Scope, key string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, scope.String(), key)
}

func (s *Store) Read(ctx context.Context, scope protocol.Scope, key string) (state.Entry, error) {
	k := s.namespacedKey(scope, key)
	val, err := s.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return state.Entry{}, state.ErrNotFound
	}
	if err != nil {
		return state.Entry{}, err
	}
	ver, err := s.rdb.Get(ctx, k+":v").Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return state.Entry{}, err
	}
	return state.Entry{Scope: scope, Key: key, Value: []byte(val), Version: ver}, nil
}

func (s *Store) List(ctx context.Context, scope protocol.Scope) ([]state.Entry, error) {
	pattern := fmt.Sprintf("%s:%s:*", s.prefix, scope.String())
	keys, err := s.rdb.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, err
	}
	var out []state.Entry
	for _, k := range keys {
		if len(k) > 2 && k[len(k)-2:] == ":v" {
			continue
		}
		logicalKey := k[len(fmt.Sprintf("%s:%s:", s.prefix, scope.String())):]
		entry, err := s.Read(ctx, scope, logicalKey)
		if errors.Is(err, state.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *Store) Write(ctx context.Context, scope protocol.Scope, key string, value []byte, expectedVersion uint64) (uint64, error) {
	k := s.namespacedKey(scope, key)
	res, err := s.rdb.Eval(ctx, casWriteScript, []string{k}, expectedVersion, value).Int64()
	if err != nil {
		return 0, err
	}
	if res < 0 {
		return 0, state.ErrVersionConflict
	}
	return uint64(res), nil
}

func (s *Store) Delete(ctx context.Context, scope protocol.Scope, key string, expectedVersion uint64) error {
	k := s.namespacedKey(scope, key)
	res, err := s.rdb.Eval(ctx, casDeleteScript, []string{k}, expectedVersion).Int64()
	if err != nil {
		return err
	}
	if res < 0 {
		return state.ErrVersionConflict
	}
	return nil
}
