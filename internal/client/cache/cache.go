// Package cache implements the local-first read-through cache used for
// remote-owned resources (the avatar record, the verification request
// list).
//
// Reads prefer the persisted copy and only fall through to the remote
// fetcher on a miss. Concurrent misses on the same key are coalesced into a
// single remote call. A corrupt persisted entry is treated as a miss: the
// entry is deleted and the value refetched, and the caller never sees a
// decode error.
package cache

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/credlink/credlink/internal/client/metrics"
	"github.com/credlink/credlink/internal/client/repositories/kv"
	"github.com/credlink/credlink/internal/common"
	"github.com/credlink/credlink/internal/logging"
	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the authoritative value from the remote API.
type FetchFunc[T any] func(ctx context.Context) (*T, error)

// Resource is a generic per-key cache over the persistence adapter.
// The zero value is not usable; construct with New.
type Resource[T any] struct {
	name    string
	repo    kv.Repository
	log     logging.Logger
	metrics *metrics.Metrics

	group singleflight.Group

	// gen guards against a slow remote fetch overwriting a value written
	// by a later Put or Clear on the same key.
	mu  sync.Mutex
	gen map[string]uint64
}

// New builds a Resource cache. name labels metrics and logs; m may be nil.
func New[T any](name string, repo kv.Repository, log logging.Logger, m *metrics.Metrics) *Resource[T] {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Resource[T]{
		name:    name,
		repo:    repo,
		log:     log,
		metrics: m,
		gen:     make(map[string]uint64),
	}
}

// Get returns the cached value for key, fetching remotely on a miss. On a
// successful fetch the value is written through before returning. A nil
// value with nil error means the resource does not exist remotely either.
func (r *Resource[T]) Get(ctx context.Context, key string, fetch FetchFunc[T]) (*T, error) {
	if v, ok := r.readLocal(ctx, key); ok {
		r.metrics.ObserveCacheRead(r.name, "hit")
		return v, nil
	}
	r.metrics.ObserveCacheRead(r.name, "miss")

	v, err, _ := r.group.Do(key, func() (any, error) {
		// Another flight may have populated the cache while this call
		// waited on the group.
		if v, ok := r.readLocal(ctx, key); ok {
			return v, nil
		}

		startGen := r.generation(key)

		fetched, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if fetched == nil {
			return (*T)(nil), nil
		}

		r.writeThrough(ctx, key, startGen, fetched)
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

// Put writes value through to the local store and invalidates any in-flight
// fetch for the same key.
func (r *Resource[T]) Put(ctx context.Context, key string, value *T) error {
	r.bump(key)

	data, err := json.Marshal(value)
	if err != nil {
		return common.Wrap(err, common.CodeInternal, "failed to encode cache entry")
	}
	if err := r.repo.Set(ctx, key, data); err != nil {
		return common.Wrap(err, common.CodeInternal, "failed to persist cache entry")
	}
	return nil
}

// Clear removes the entry for key.
func (r *Resource[T]) Clear(ctx context.Context, key string) error {
	r.bump(key)
	return r.repo.Delete(ctx, key)
}

// readLocal returns (value, true) when a decodable entry exists. A corrupt
// entry is deleted and reported as a miss.
func (r *Resource[T]) readLocal(ctx context.Context, key string) (*T, bool) {
	data, err := r.repo.Get(ctx, key)
	if err != nil || data == nil {
		return nil, false
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		r.metrics.ObserveCacheRead(r.name, "corrupt")
		r.log.Warn(ctx, "dropping corrupt cache entry", "resource", r.name, "key", key)
		_ = r.repo.Delete(ctx, key)
		return nil, false
	}
	return &v, true
}

// writeThrough persists a fetched value unless the key moved on while the
// fetch was in flight.
func (r *Resource[T]) writeThrough(ctx context.Context, key string, startGen uint64, value *T) {
	r.mu.Lock()
	stale := r.gen[key] != startGen
	r.mu.Unlock()
	if stale {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		r.log.Error(ctx, "failed to encode fetched value", "resource", r.name, "err", err)
		return
	}
	if err := r.repo.Set(ctx, key, data); err != nil {
		r.log.Error(ctx, "failed to persist fetched value", "resource", r.name, "err", err)
	}
}

func (r *Resource[T]) generation(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen[key]
}

func (r *Resource[T]) bump(key string) {
	r.mu.Lock()
	r.gen[key]++
	r.mu.Unlock()
}
