package expiremap

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"expire-map/internal/metrics"
	"expire-map/internal/retry"
)

// ErrNilLoader is returned by GetOrLoad when no loader is given.
var ErrNilLoader = errors.New("expiremap: nil loader")

// Loader fetches the value for key from a backing source.
type Loader[K comparable, V any] func(ctx context.Context, key K) (V, error)

// loaded is what a shared load hands to every caller waiting on it.
type loaded[K comparable, V any] struct {
	key   K
	value V
}

// GetOrLoad returns the value under key, calling load on a miss and storing
// the result for ttl.
//
// Concurrent misses for the same key share one load. The context of the
// caller that started a load governs that load. Failed loads are retried
// according to Config.LoadRetry and are never stored. With ttl <= 0 the
// loaded value is returned but not stored.
func (m *Map[K, V]) GetOrLoad(ctx context.Context, key K, ttl time.Duration, load Loader[K, V]) (V, error) {
	if v, ok := m.Get(key); ok {
		return v, nil
	}

	var zero V
	if load == nil {
		return zero, ErrNilLoader
	}

	// Loads are grouped by key hash; a caller that joined a load for a
	// different key with the same hash loads on its own.
	group := strconv.FormatUint(m.store.Hash(key), 16)
	ch := m.loads.DoChan(group, func() (any, error) {
		v, err := m.load(ctx, key, ttl, load)
		return loaded[K, V]{key: key, value: v}, err
	})

	select {
	case res := <-ch:
		shared := res.Val.(loaded[K, V])
		if shared.key != key {
			return m.load(ctx, key, ttl, load)
		}
		if res.Err != nil {
			return zero, fmt.Errorf("expiremap: load %v: %w", key, res.Err)
		}
		return shared.value, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// load runs the loader with retries and stores a successful result.
func (m *Map[K, V]) load(ctx context.Context, key K, ttl time.Duration, fn Loader[K, V]) (V, error) {
	if v, ok := m.Get(key); ok {
		return v, nil
	}

	var v V
	err := retry.Do(ctx, m.retry, func(attempt int) error {
		if attempt > 0 {
			m.metrics.Inc(metrics.LoaderRetriesTotal)
		}
		m.metrics.Inc(metrics.LoaderCallsTotal)

		var err error
		v, err = fn(ctx, key)
		return err
	})
	if err != nil {
		m.metrics.Inc(metrics.LoaderErrorsTotal)
		m.log.Warnf("load failed for key %v: %v", key, err)
		var zero V
		return zero, err
	}

	m.Put(key, v, ttl)
	return v, nil
}
