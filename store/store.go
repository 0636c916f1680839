// Package store holds the key/value pairs a node is responsible for.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/simplelru"
	ds "github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	dssync "github.com/ipfs/go-datastore/sync"
	logging "github.com/ipfs/go-log/v2"
	"github.com/multiformats/go-base32"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Rendaw/kademlia/util"
)

var logger = logging.Logger("kad/store")

const (
	// Namespace prefixes every datastore key written by a Store.
	Namespace = "/kad"

	lruCacheSize = 256
)

// Pair is a stored key and its value.
type Pair struct {
	Key   []byte
	Value []byte
}

// Storage is what the protocol engine needs from a key/value store. Failures are handled by
// the implementation and never reach the caller.
type Storage interface {
	// Get returns the value stored under key.
	Get(ctx context.Context, key []byte) ([]byte, bool)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value []byte)
	// All returns every stored pair.
	All(ctx context.Context) []Pair
}

// Store is a Storage backed by a datastore and fronted by an LRU read cache.
type Store struct {
	cache  lru.LRUCache
	dstore ds.Datastore
}

var _ Storage = (*Store)(nil)

// New returns a Store writing to dstore.
func New(dstore ds.Datastore, opts ...Option) (*Store, error) {
	cache, err := lru.NewLRU(lruCacheSize, nil)
	if err != nil {
		return nil, err
	}

	s := &Store{
		cache:  cache,
		dstore: dstore,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}
	return s, nil
}

// NewMemory returns a Store kept in memory.
func NewMemory() *Store {
	s, err := New(dssync.MutexWrap(ds.NewMapDatastore()))
	if err != nil {
		panic(err)
	}
	return s
}

// DatastoreKey returns the datastore key a value stored under key is written to.
func DatastoreKey(key []byte) ds.Key {
	return ds.NewKey(Namespace + "/" + base32.RawStdEncoding.EncodeToString(key))
}

func keyFromDatastore(k string) ([]byte, error) {
	enc := strings.TrimPrefix(k, Namespace+"/")
	return base32.RawStdEncoding.DecodeString(enc)
}

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, bool) {
	ctx, span := util.StartSpan(ctx, "store.Get", trace.WithAttributes(
		attribute.Int("key_len", len(key)),
	))
	defer span.End()

	if v, ok := s.cache.Get(string(key)); ok {
		span.AddEvent("cache hit")
		return v.([]byte), true
	}

	value, err := s.dstore.Get(ctx, DatastoreKey(key))
	if err != nil {
		if !errors.Is(err, ds.ErrNotFound) {
			span.RecordError(err)
			logger.Warnw("datastore get failed", "key", fmt.Sprintf("%x", key), "err", err)
		}
		return nil, false
	}
	s.cache.Add(string(key), value)
	return value, true
}

func (s *Store) Set(ctx context.Context, key, value []byte) {
	ctx, span := util.StartSpan(ctx, "store.Set", trace.WithAttributes(
		attribute.Int("key_len", len(key)),
		attribute.Int("value_len", len(value)),
	))
	defer span.End()

	if err := s.dstore.Put(ctx, DatastoreKey(key), value); err != nil {
		span.RecordError(err)
		logger.Warnw("datastore put failed", "key", fmt.Sprintf("%x", key), "err", err)
		s.cache.Remove(string(key))
		return
	}
	s.cache.Add(string(key), value)
}

// All returns every stored pair ordered by datastore key.
func (s *Store) All(ctx context.Context) []Pair {
	ctx, span := util.StartSpan(ctx, "store.All")
	defer span.End()

	res, err := s.dstore.Query(ctx, query.Query{
		Prefix: Namespace,
		Orders: []query.Order{query.OrderByKey{}},
	})
	if err != nil {
		span.RecordError(err)
		logger.Warnw("datastore query failed", "err", err)
		return nil
	}
	entries, err := res.Rest()
	if err != nil {
		span.RecordError(err)
		logger.Warnw("datastore query failed", "err", err)
		return nil
	}

	pairs := make([]Pair, 0, len(entries))
	for _, e := range entries {
		k, err := keyFromDatastore(e.Key)
		if err != nil {
			logger.Warnw("skipping foreign datastore key", "key", e.Key, "err", err)
			continue
		}
		pairs = append(pairs, Pair{Key: k, Value: e.Value})
	}
	span.SetAttributes(attribute.Int("count", len(pairs)))
	return pairs
}
