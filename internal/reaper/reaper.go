package reaper

import (
	"context"
	"time"

	"expire-map/internal/index"
	"expire-map/internal/logs"
	"expire-map/internal/metrics"
)

// DefaultFallbackInterval bounds how long the reaper sleeps when nothing is scheduled.
const DefaultFallbackInterval = time.Second

// Store defines the minimal contract required by the reaper.
// This keeps the reaper decoupled from the concrete store implementation.
type Store[K comparable, E any] interface {
	RemoveIfMatches(key K, entry E) bool
}

// Config controls reaper timing.
type Config struct {
	FallbackInterval time.Duration
	Now              func() time.Time
}

// Result summarizes one reaping pass.
type Result struct {
	Reaped int           // live entries removed from the store
	Stale  int           // records whose entry had already been replaced or removed
	Lag    time.Duration // how far past its expiry the most overdue record was
}

// Reaper drains due records from the expiration index and removes the
// matching entries from the store, sleeping until the next expiry.
type Reaper[K comparable, E any] struct {
	store    Store[K, E]
	index    *index.Index[K, E]
	fallback time.Duration
	now      func() time.Time
	wake     chan struct{}
	logger   *logs.Source
	metrics  *metrics.Registry
}

// New creates a reaper over store and idx. It does nothing until Start.
func New[K comparable, E any](
	store Store[K, E],
	idx *index.Index[K, E],
	cfg Config,
	logger *logs.Source,
	reg *metrics.Registry,
) *Reaper[K, E] {
	if cfg.FallbackInterval <= 0 {
		cfg.FallbackInterval = DefaultFallbackInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Reaper[K, E]{
		store:    store,
		index:    idx,
		fallback: cfg.FallbackInterval,
		now:      cfg.Now,
		wake:     make(chan struct{}, 1),
		logger:   logger,
		metrics:  reg,
	}
}

// Wake asks a sleeping reaper to re-evaluate now. It never blocks, and
// wakes sent while a pass is running coalesce into one.
func (r *Reaper[K, E]) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Start runs the reaping loop until the context is cancelled.
// It blocks and should typically be run in a separate goroutine.
func (r *Reaper[K, E]) Start(ctx context.Context) {
	timer := time.NewTimer(r.fallback)
	defer timer.Stop()

	r.logger.Debugf("reaper started")

	for {
		if ctx.Err() != nil {
			r.logger.Debugf("reaper stopped")
			return
		}

		_, wait := r.RunOnce()
		timer.Reset(wait)

		select {
		case <-timer.C:
		case <-r.wake:
			r.metrics.Inc(metrics.ReaperWakeupsTotal)
		case <-ctx.Done():
			r.logger.Debugf("reaper stopped")
			return
		}
	}
}

// RunOnce performs a single reaping pass and returns how long to wait
// before the next one.
//
// A panic during the pass is recovered and logged; the caller simply
// waits the fallback interval and tries again.
func (r *Reaper[K, E]) RunOnce() (res Result, wait time.Duration) {
	defer func() {
		if p := recover(); p != nil {
			r.metrics.Inc(metrics.ReaperPanicsTotal)
			r.logger.Errorf("panic: reaper pass: %v", p)
			wait = r.fallback
		}

		r.metrics.Inc(metrics.ReaperRunsTotal)
		r.metrics.Add(metrics.ReaperReapedTotal, int64(res.Reaped))
		r.metrics.Add(metrics.ReaperStaleTotal, int64(res.Stale))
		r.metrics.Set(metrics.ReaperLagMillis, res.Lag.Milliseconds())
		if res.Reaped > 0 || res.Stale > 0 {
			r.logger.Debugf("reaper removed %d expired keys, discarded %d stale records", res.Reaped, res.Stale)
		}
	}()

	now := r.now()
	for {
		rec, ok := r.index.Earliest()
		if !ok {
			return res, r.fallback
		}

		// Everything after the first future record is later still.
		if !rec.Due(now) {
			return res, max(rec.ExpiresAt.Sub(now), 0)
		}

		res.Lag = max(res.Lag, now.Sub(rec.ExpiresAt))
		if r.store.RemoveIfMatches(rec.Key, rec.Entry) {
			res.Reaped++
		} else {
			res.Stale++
		}
		r.index.Remove(rec)
	}
}
