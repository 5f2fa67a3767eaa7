package reaper

import (
	"context"
	"sync"
	"testing"
	"time"

	"expire-map/internal/index"
	"expire-map/internal/logs"
	"expire-map/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/* ---------------- Mock Store ---------------- */

// mockStore keeps key -> current entry id, mimicking identity-checked removal.
type mockStore struct {
	mu      sync.Mutex
	current map[string]int
	panicOn string
}

func newMockStore() *mockStore {
	return &mockStore{current: make(map[string]int)}
}

func (m *mockStore) set(key string, id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current[key] = id
}

func (m *mockStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.current[key]
	return ok
}

func (m *mockStore) RemoveIfMatches(key string, id int) bool {
	if key == m.panicOn {
		panic("boom")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.current[key]; ok && cur == id {
		delete(m.current, key)
		return true
	}
	return false
}

/* ---------------- Fake Clock ---------------- */

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	store  *mockStore
	index  *index.Index[string, int]
	clock  *fakeClock
	logger *logs.Logger
	reg    *metrics.Registry
	reaper *Reaper[string, int]
}

func newFixture(fallback time.Duration) *fixture {
	f := &fixture{
		store:  newMockStore(),
		clock:  &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		logger: logs.NewLogger(50, logs.DEBUG),
		reg:    metrics.NewRegistry(),
	}
	f.index = index.New[string, int](f.reg)
	f.reaper = New[string, int](
		f.store,
		f.index,
		Config{FallbackInterval: fallback, Now: f.clock.Now},
		f.logger.Named("test"),
		f.reg,
	)
	return f
}

func (f *fixture) put(key string, id int, ttl time.Duration) {
	f.store.set(key, id)
	f.index.Insert(key, f.clock.Now().Add(ttl), id)
}

/* ---------------- Tests ---------------- */

func TestReaper_RunOnce_EmptyIndexWaitsFallback(t *testing.T) {
	f := newFixture(time.Second)

	res, wait := f.reaper.RunOnce()

	assert.Equal(t, Result{}, res)
	assert.Equal(t, time.Second, wait)
	assert.Equal(t, int64(1), f.reg.Get(metrics.ReaperRunsTotal))
}

func TestReaper_RunOnce_ReapsDueAndWaitsForNext(t *testing.T) {
	f := newFixture(time.Second)

	f.put("a", 1, 100*time.Millisecond)
	f.put("b", 2, 200*time.Millisecond)
	f.put("c", 3, 900*time.Millisecond)

	f.clock.Advance(200 * time.Millisecond)
	res, wait := f.reaper.RunOnce()

	assert.Equal(t, Result{Reaped: 2, Lag: 100 * time.Millisecond}, res)
	assert.Equal(t, 700*time.Millisecond, wait)
	assert.False(t, f.store.has("a"))
	assert.False(t, f.store.has("b"), "a record expiring exactly now is due")
	assert.True(t, f.store.has("c"))
	assert.Equal(t, 1, f.index.Len())

	snap := f.reg.Snapshot()
	assert.Equal(t, int64(2), snap[string(metrics.ReaperReapedTotal)])
	assert.Equal(t, int64(100), snap[string(metrics.ReaperLagMillis)])
	assert.Equal(t, int64(1), snap[string(metrics.IndexRecords)])
}

func TestReaper_RunOnce_StaleRecordSparesOverwrite(t *testing.T) {
	f := newFixture(time.Second)

	f.put("k", 1, 100*time.Millisecond)
	// overwrite before the first record is due
	f.put("k", 2, 5*time.Second)

	f.clock.Advance(time.Second)
	res, wait := f.reaper.RunOnce()

	assert.Equal(t, Result{Stale: 1, Lag: 900 * time.Millisecond}, res)
	assert.Equal(t, 4*time.Second, wait)
	assert.True(t, f.store.has("k"), "stale record must never remove the live entry")
	assert.Equal(t, int64(1), f.reg.Get(metrics.ReaperStaleTotal))
}

func TestReaper_RunOnce_RecoversPanic(t *testing.T) {
	f := newFixture(250 * time.Millisecond)
	f.store.panicOn = "bad"

	f.put("bad", 1, time.Millisecond)
	f.clock.Advance(time.Second)

	var wait time.Duration
	require.NotPanics(t, func() {
		_, wait = f.reaper.RunOnce()
	})

	assert.Equal(t, 250*time.Millisecond, wait)
	assert.Equal(t, int64(1), f.reg.Get(metrics.ReaperPanicsTotal))

	entries := f.logger.GetLast(1)
	require.Len(t, entries, 1)
	assert.Equal(t, logs.ERROR, entries[0].Level)
	assert.Contains(t, entries[0].Message, "panic")
}

func TestReaper_Start_ReapsOnFallbackTick(t *testing.T) {
	f := newFixture(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go f.reaper.Start(ctx)

	assert.Eventually(t, func() bool {
		return f.reg.Get(metrics.ReaperRunsTotal) >= 2
	}, 500*time.Millisecond, 5*time.Millisecond)
}

func TestReaper_Start_WakeTriggersPromptPass(t *testing.T) {
	// A fallback this long would fail the test if Wake were ignored.
	f := newFixture(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go f.reaper.Start(ctx)
	require.Eventually(t, func() bool {
		return f.reg.Get(metrics.ReaperRunsTotal) >= 1
	}, time.Second, time.Millisecond)

	f.put("k", 1, time.Millisecond)
	f.clock.Advance(time.Second)
	f.reaper.Wake()

	assert.Eventually(t, func() bool {
		return !f.store.has("k")
	}, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, f.reg.Get(metrics.ReaperWakeupsTotal), int64(1))
}

func TestReaper_Wake_NeverBlocks(t *testing.T) {
	f := newFixture(time.Second)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			f.reaper.Wake()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wake blocked without a running reaper")
	}
}

func TestReaper_Start_StopsOnContextCancel(t *testing.T) {
	f := newFixture(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		f.reaper.Start(ctx)
		close(stopped)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after cancel")
	}

	runsAtStop := f.reg.Get(metrics.ReaperRunsTotal)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, runsAtStop, f.reg.Get(metrics.ReaperRunsTotal))
}
