// Package cache provides query result caching keyed on operation identity
// and query shape, with coarse per-resource invalidation on writes.
package cache

import (
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/refractdb/refract/internal/debug"
)

// ErrCacheBackend classifies store failures. Coordinator callers never see
// it: store errors degrade to cache-miss behavior.
var ErrCacheBackend = errors.New("cache backend error")

// Store is the backing key/value store. Entries may be evicted or expired at
// any time; TTL is advisory and an expired entry reads as absent.
type Store interface {
	Get(key string) (interface{}, bool, error)
	Set(key string, value interface{}) error
	Remove(key string) error
}

// LRUStore is an in-memory Store on an LRU with per-entry TTL.
type LRUStore struct {
	lru *expirable.LRU[string, interface{}]
}

// NewLRUStore creates an LRU store. size <= 0 means unbounded; ttl 0 disables
// expiry.
func NewLRUStore(size int, ttl time.Duration) *LRUStore {
	return &LRUStore{lru: expirable.NewLRU[string, interface{}](size, nil, ttl)}
}

// Get retrieves a value.
func (s *LRUStore) Get(key string) (interface{}, bool, error) {
	value, ok := s.lru.Get(key)
	return value, ok, nil
}

// Set stores a value.
func (s *LRUStore) Set(key string, value interface{}) error {
	s.lru.Add(key, value)
	return nil
}

// Remove drops a key.
func (s *LRUStore) Remove(key string) error {
	s.lru.Remove(key)
	return nil
}

// Coordinator derives cache keys, serves reads, and invalidates every entry
// of a resource when that resource is written. Store errors are logged and
// treated as misses; they never abort the underlying operation.
type Coordinator struct {
	store Store

	mu         sync.Mutex
	byResource map[string]map[string]struct{}
}

// New creates a coordinator over the given store.
func New(store Store) *Coordinator {
	return &Coordinator{
		store:      store,
		byResource: make(map[string]map[string]struct{}),
	}
}

// NewLRU creates a coordinator over an in-memory LRU store.
func NewLRU(size int, ttl time.Duration) *Coordinator {
	return New(NewLRUStore(size, ttl))
}

// Get returns the cached result for the given operation and shape.
func (c *Coordinator) Get(operation, resource string, shape Shape) (interface{}, bool) {
	key := Key(operation, resource, shape)
	value, ok, err := c.store.Get(key)
	if err != nil {
		debug.Warn("cache get failed, treating as miss", "key", key, "error", err)
		return nil, false
	}
	return value, ok
}

// Put stores a result and records the key under its resource for later
// invalidation.
func (c *Coordinator) Put(operation, resource string, shape Shape, value interface{}) {
	key := Key(operation, resource, shape)
	if err := c.store.Set(key, value); err != nil {
		debug.Warn("cache set failed, skipping", "key", key, "error", err)
		return
	}

	c.mu.Lock()
	keys, ok := c.byResource[resource]
	if !ok {
		keys = make(map[string]struct{})
		c.byResource[resource] = keys
	}
	keys[key] = struct{}{}
	c.mu.Unlock()
}

// Invalidate drops every cached entry keyed under the resource.
func (c *Coordinator) Invalidate(resource string) {
	c.mu.Lock()
	keys := c.byResource[resource]
	delete(c.byResource, resource)
	c.mu.Unlock()

	for key := range keys {
		if err := c.store.Remove(key); err != nil {
			debug.Warn("cache invalidate failed", "key", key, "error", err)
		}
	}
}
