package store

import (
	"sync"
	"time"

	"expire-map/internal/metrics"
)

// DefaultShards is the shard count used when Options.Shards is not set.
const DefaultShards = 32

// Options configures a Store.
type Options struct {
	// Shards is rounded up to a power of two.
	Shards int
	// Now is the time source; defaults to time.Now.
	Now     func() time.Time
	Metrics *metrics.Registry
}

// Store is a concurrency-safe in-memory key–value table with per-entry expiry.
//
// Design principles:
// - Keys are spread over independently locked shards by a hash that follows ==
// - Get re-checks expiry itself, so it is correct whether or not anything reaps
// - Conditional removal compares entry identity, never value equality
type Store[K comparable, V any] struct {
	shards  []*shard[K, V]
	mask    uint64
	hasher  Hasher[K]
	now     func() time.Time
	metrics *metrics.Registry
}

type shard[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]*Entry[V]
}

type pair[K comparable, V any] struct {
	key   K
	value V
}

// New initializes and returns a new Store.
func New[K comparable, V any](opts Options) *Store[K, V] {
	n := DefaultShards
	if opts.Shards > 0 {
		n = 1
		for n < opts.Shards {
			n <<= 1
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Store[K, V]{
		shards:  make([]*shard[K, V], n),
		mask:    uint64(n - 1),
		hasher:  NewHasher[K](),
		now:     opts.Now,
		metrics: opts.Metrics,
	}
	for i := range s.shards {
		s.shards[i] = &shard[K, V]{data: make(map[K]*Entry[V])}
	}
	return s
}

// Hash returns the hash the store uses to place key. Keys equal under ==
// share a hash; distinct keys may collide.
func (s *Store[K, V]) Hash(key K) uint64 {
	return s.hasher.Sum64(key)
}

func (s *Store[K, V]) shardFor(key K) *shard[K, V] {
	return s.shards[s.Hash(key)&s.mask]
}

// Put installs value under key for ttl and returns the installed entry.
//
// Rules:
// - ttl <= 0 is a no-op: nothing is installed, an existing entry is kept, nil is returned.
// - Otherwise any prior entry for key is replaced wholesale.
func (s *Store[K, V]) Put(key K, value V, ttl time.Duration) *Entry[V] {
	if ttl <= 0 {
		s.metrics.Inc(metrics.NoopPutsTotal)
		return nil
	}

	e := &Entry[V]{Value: value, ExpiresAt: s.now().Add(ttl)}

	sh := s.shardFor(key)
	sh.mu.Lock()
	_, existed := sh.data[key]
	sh.data[key] = e
	sh.mu.Unlock()

	s.metrics.Inc(metrics.PutsTotal)
	if !existed {
		s.metrics.Inc(metrics.EntriesStored)
	}
	return e
}

// Get retrieves a value from the store.
//
// Behavior:
// - Returns (value, true) if key exists and is not expired
// - An expired entry is treated as missing and dropped, unless it was replaced meanwhile
func (s *Store[K, V]) Get(key K) (V, bool) {
	var zero V
	s.metrics.Inc(metrics.GetsTotal)

	sh := s.shardFor(key)
	sh.mu.RLock()
	e, ok := sh.data[key]
	sh.mu.RUnlock()

	if !ok {
		s.metrics.Inc(metrics.MissesTotal)
		return zero, false
	}

	if e.IsExpired(s.now()) {
		if s.RemoveIfMatches(key, e) {
			s.metrics.Inc(metrics.ExpiredOnGetTotal)
		}
		s.metrics.Inc(metrics.MissesTotal)
		return zero, false
	}

	s.metrics.Inc(metrics.HitsTotal)
	return e.Value, true
}

// RemoveIfMatches deletes key only while entry is still the one stored for it.
func (s *Store[K, V]) RemoveIfMatches(key K, entry *Entry[V]) bool {
	if entry == nil {
		return false
	}

	sh := s.shardFor(key)
	sh.mu.Lock()
	current, ok := sh.data[key]
	if !ok || current != entry {
		sh.mu.Unlock()
		return false
	}
	delete(sh.data, key)
	sh.mu.Unlock()

	s.metrics.Add(metrics.EntriesStored, -1)
	return true
}

// Remove deletes key. It is a no-op if the key is absent.
func (s *Store[K, V]) Remove(key K) bool {
	sh := s.shardFor(key)
	sh.mu.Lock()
	_, ok := sh.data[key]
	if ok {
		delete(sh.data, key)
	}
	sh.mu.Unlock()

	s.metrics.Inc(metrics.RemovesTotal)
	if ok {
		s.metrics.Add(metrics.EntriesStored, -1)
	}
	return ok
}

// Len returns the number of stored entries, including expired entries that
// have not been dropped yet.
func (s *Store[K, V]) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.data)
		sh.mu.RUnlock()
	}
	return n
}

// Range calls fn for every unexpired entry until fn returns false.
// fn runs without any shard lock held and may call back into the store.
func (s *Store[K, V]) Range(fn func(key K, value V) bool) {
	for _, sh := range s.shards {
		now := s.now()

		sh.mu.RLock()
		live := make([]pair[K, V], 0, len(sh.data))
		for k, e := range sh.data {
			if !e.IsExpired(now) {
				live = append(live, pair[K, V]{key: k, value: e.Value})
			}
		}
		sh.mu.RUnlock()

		for _, p := range live {
			if !fn(p.key, p.value) {
				return
			}
		}
	}
}
