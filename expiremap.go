package expiremap

import (
	"context"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"expire-map/internal/health"
	"expire-map/internal/index"
	"expire-map/internal/logs"
	"expire-map/internal/metrics"
	"expire-map/internal/reaper"
	"expire-map/internal/retry"
	"expire-map/internal/store"

	"golang.org/x/sync/singleflight"
)

// Map is a concurrency-safe key/value map whose entries expire after a TTL.
//
// Ownership model:
// Map owns its reaper goroutine. Call Close to stop it; a Map that becomes
// unreachable without Close stops its reaper when garbage collected.
type Map[K comparable, V any] struct {
	name   string
	store  *store.Store[K, V]
	index  *index.Index[K, *store.Entry[V]]
	reaper *reaper.Reaper[K, *store.Entry[V]]

	loads singleflight.Group
	retry retry.Policy

	logger   *logs.Logger
	log      *logs.Source
	metrics  *metrics.Registry
	analyzer *health.Analyzer

	cancel    context.CancelFunc
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

// New constructs a map and starts its reaper.
//
// New never returns a nil Map.
func New[K comparable, V any](cfg Config) *Map[K, V] {
	cfg = cfg.withDefaults()

	reg := metrics.NewRegistry()
	logger := logs.NewLogger(cfg.LogSize, cfg.LogLevel)

	st := store.New[K, V](store.Options{
		Shards:  cfg.Shards,
		Now:     cfg.Now,
		Metrics: reg,
	})
	idx := index.New[K, *store.Entry[V]](reg)

	m := &Map[K, V]{
		name:     cfg.Name,
		store:    st,
		index:    idx,
		retry:    cfg.LoadRetry,
		logger:   logger,
		log:      logger.Named(cfg.Name),
		metrics:  reg,
		analyzer: health.NewAnalyzer(reg),
		done:     make(chan struct{}),
	}
	m.reaper = reaper.New[K, *store.Entry[V]](
		st,
		idx,
		reaper.Config{FallbackInterval: cfg.FallbackInterval, Now: cfg.Now},
		m.log,
		reg,
	)

	m.log.Infof("map started: shards=%d fallback=%s", cfg.Shards, cfg.FallbackInterval)

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	// The reaper goroutine must not reference m, or the cleanup never runs.
	go func(r *reaper.Reaper[K, *store.Entry[V]], done chan<- struct{}) {
		defer close(done)
		r.Start(ctx)
	}(m.reaper, m.done)
	runtime.AddCleanup(m, func(cancel context.CancelFunc) { cancel() }, cancel)

	return m
}

// NewDefault constructs a map with DefaultConfig.
func NewDefault[K comparable, V any]() *Map[K, V] {
	return New[K, V](DefaultConfig())
}

// Put stores value under key for ttl, replacing any previous value.
//
// ttl <= 0 is a no-op: nothing is stored and an existing value is kept.
func (m *Map[K, V]) Put(key K, value V, ttl time.Duration) {
	e := m.store.Put(key, value, ttl)
	if e == nil || m.closed.Load() {
		return
	}

	if _, earliest := m.index.Insert(key, e.ExpiresAt, e); earliest {
		m.reaper.Wake()
	}
}

// PutMillis is Put with the TTL given in milliseconds.
func (m *Map[K, V]) PutMillis(key K, value V, ttlMillis int64) {
	ttl := time.Duration(math.MaxInt64)
	if ttlMillis < int64(math.MaxInt64/time.Millisecond) {
		ttl = time.Duration(ttlMillis) * time.Millisecond
	}
	m.Put(key, value, ttl)
}

// Get returns the value stored under key, or false if the key was never set,
// was removed, or has expired, whether or not it has been reaped yet.
func (m *Map[K, V]) Get(key K) (V, bool) {
	return m.store.Get(key)
}

// Remove deletes key. It is a no-op if the key is absent.
func (m *Map[K, V]) Remove(key K) {
	m.store.Remove(key)
}

// Len returns the number of stored entries.
//
// Note: Len includes entries that have expired but haven't been reaped yet.
func (m *Map[K, V]) Len() int {
	return m.store.Len()
}

// Range calls fn for every unexpired entry until fn returns false.
// Iteration order is unspecified.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	m.store.Range(fn)
}

// Close stops the reaper and waits for it to exit.
//
// Close is safe to call multiple times. Get, Put and Remove keep working
// afterwards, but expired entries are only dropped when Get finds them.
func (m *Map[K, V]) Close() error {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		m.cancel()
		<-m.done
		m.log.Infof("map closed")
	})
	return nil
}

// Name returns the map's name as used in its logs.
func (m *Map[K, V]) Name() string {
	return m.name
}

// Stats returns a snapshot of the map's counters and gauges.
func (m *Map[K, V]) Stats() map[string]int64 {
	return m.metrics.Snapshot()
}

// Health evaluates the map's metrics.
func (m *Map[K, V]) Health() HealthReport {
	return m.analyzer.Analyze()
}

// RecentLogs returns up to n of the most recent log entries, oldest first.
func (m *Map[K, V]) RecentLogs(n int) []LogEntry {
	return m.logger.GetLast(n)
}
