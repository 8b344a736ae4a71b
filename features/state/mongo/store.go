// Package mongo implements state.Store on top of go.mongodb.org/mongo-driver/v2,
// using FindOneAndUpdate with a version filter to realize compare-and-swap
// semantics without a multi-document transaction.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/relayforge/agentrt/runtime/protocol"
	"github.com/relayforge/agentrt/runtime/state"
)

const defaultTimeout = 5 * time.Second

type doc struct {
	Scope   string `bson:"scope"`
	Key     string `bson:"key"`
	Value   []byte `bson:"value"`
	Version uint64 `bson:"version"`
}

// Store implements state.Store over a single Mongo collection, documents
// keyed by the compound (scope, key) pair.
type Store struct {
	coll    *mongodriver.Collection
	timeout time.Duration
}

// New builds a Store backed by the given collection. Callers are expected to
// have created a unique index on {scope:1, key:1} ahead of time (see
// EnsureIndexes).
func New(coll *mongodriver.Collection) *Store {
	return &Store{coll: coll, timeout: defaultTimeout}
}

// EnsureIndexes creates the unique (scope, key) index this store depends on
// for Write's upsert-or-conflict semantics to be race-free.
func EnsureIndexes(ctx context.Context, coll *mongodriver.Collection) error {
	_, err := coll.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "scope", Value: 1}, {Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) Read(ctx context.Context, scope protocol.Scope, key string) (state.Entry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var d doc
	err := s.coll.FindOne(ctx, bson.M{"scope": scope.String(), "key": key}).Decode(&d)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return state.Entry{}, state.ErrNotFound
	}
	if err != nil {
		return state.Entry{}, err
	}
	return state.Entry{Scope: scope, Key: key, Value: d.Value, Version: d.Version}, nil
}

func (s *Store) List(ctx context.Context, scope protocol.Scope) ([]state.Entry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := s.coll.Find(ctx, bson.M{"scope": scope.String()})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []state.Entry
	for cur.Next(ctx) {
		var d doc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, state.Entry{Scope: scope, Key: d.Key, Value: d.Value, Version: d.Version})
	}
	return out, cur.Err()
}

// Write performs the CAS contract: expectedVersion == 0 means "the document
// must not yet exist", realized via an upsert filtered on a version that
// can never match an existing document's current value (0, by convention,
// since stored versions start at 1). Any other expectedVersion must match
// the stored version exactly.
func (s *Store) Write(ctx context.Context, scope protocol.Scope, key string, value []byte, expectedVersion uint64) (uint64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"scope": scope.String(), "key": key, "version": expectedVersion}
	next := expectedVersion + 1
	update := bson.M{"$set": bson.M{"value": value, "version": next}}
	opts := options.FindOneAndUpdate().SetUpsert(expectedVersion == 0).SetReturnDocument(options.After)

	var out doc
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return 0, state.ErrVersionConflict
	}
	var we mongodriver.WriteException
	if errors.As(err, &we) && we.HasErrorCode(11000) {
		// Upsert raced a concurrent insert for the same (scope, key).
		return 0, state.ErrVersionConflict
	}
	if err != nil {
		return 0, err
	}
	return out.Version, nil
}

func (s *Store) Delete(ctx context.Context, scope protocol.Scope, key string, expectedVersion uint64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.coll.DeleteOne(ctx, bson.M{"scope": scope.String(), "key": key, "version": expectedVersion})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return state.ErrVersionConflict
	}
	return nil
}
