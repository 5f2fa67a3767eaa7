package metrics

import (
	"sync"
	"sync/atomic"
)

// MetricKey is a strongly typed metric identifier.
type MetricKey string

// Metric keys (centralized)
const (
	// Entry store
	EntriesStored     MetricKey = "entries_stored"
	PutsTotal         MetricKey = "puts_total"
	NoopPutsTotal     MetricKey = "noop_puts_total"
	GetsTotal         MetricKey = "gets_total"
	HitsTotal         MetricKey = "hits_total"
	MissesTotal       MetricKey = "misses_total"
	ExpiredOnGetTotal MetricKey = "expired_on_get_total"
	RemovesTotal      MetricKey = "removes_total"

	// Expiration index
	IndexRecords MetricKey = "index_records"

	// Reaper
	ReaperRunsTotal    MetricKey = "reaper_runs_total"
	ReaperReapedTotal  MetricKey = "reaper_reaped_total"
	ReaperStaleTotal   MetricKey = "reaper_stale_total"
	ReaperWakeupsTotal MetricKey = "reaper_wakeups_total"
	ReaperPanicsTotal  MetricKey = "reaper_panics_total"
	ReaperLagMillis    MetricKey = "reaper_lag_ms"

	// Loader
	LoaderCallsTotal   MetricKey = "loader_calls_total"
	LoaderErrorsTotal  MetricKey = "loader_errors_total"
	LoaderRetriesTotal MetricKey = "loader_retries_total"
)

// Registry stores all metrics.
type Registry struct {
	mu       sync.RWMutex
	counters map[MetricKey]*int64
}

// NewRegistry creates a metrics registry.
func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[MetricKey]*int64),
	}
}

// Inc increments a metric by 1.
func (r *Registry) Inc(key MetricKey) {
	r.Add(key, 1)
}

// Add increments a metric by delta.
// A nil registry discards the update.
func (r *Registry) Add(key MetricKey, delta int64) {
	if r == nil {
		return
	}
	atomic.AddInt64(r.counter(key), delta)
}

// Set overwrites a gauge-style metric.
func (r *Registry) Set(key MetricKey, value int64) {
	if r == nil {
		return
	}
	atomic.StoreInt64(r.counter(key), value)
}

// Get returns the current value of a single metric.
func (r *Registry) Get(key MetricKey) int64 {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	ptr, ok := r.counters[key]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt64(ptr)
}

func (r *Registry) counter(key MetricKey) *int64 {
	r.mu.RLock()
	ptr, ok := r.counters[key]
	r.mu.RUnlock()

	if ok {
		return ptr
	}

	// Slow path: metric not yet initialized
	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if ptr, ok = r.counters[key]; ok {
		return ptr
	}

	var val int64
	r.counters[key] = &val
	return &val
}
