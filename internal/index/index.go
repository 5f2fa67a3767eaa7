package index

import (
	"sync"
	"time"

	"expire-map/internal/metrics"

	"github.com/google/btree"
)

const degree = 32

// Index is a concurrency-safe set of expiry records ordered by
// (ExpiresAt, insertion order).
type Index[K comparable, E any] struct {
	mu      sync.Mutex
	tree    *btree.BTreeG[*Record[K, E]]
	seq     uint64
	metrics *metrics.Registry
}

// New creates an empty index.
func New[K comparable, E any](reg *metrics.Registry) *Index[K, E] {
	return &Index[K, E]{
		tree:    btree.NewG[*Record[K, E]](degree, less[K, E]),
		metrics: reg,
	}
}

// Insert schedules key for expiresAt. The returned flag is true when the new
// record sorts before every other record, which means a sleeping reaper is
// waiting for something later than it should.
func (ix *Index[K, E]) Insert(key K, expiresAt time.Time, entry E) (*Record[K, E], bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.seq++
	rec := &Record[K, E]{Key: key, ExpiresAt: expiresAt, Entry: entry, seq: ix.seq}
	ix.tree.ReplaceOrInsert(rec)
	ix.metrics.Set(metrics.IndexRecords, int64(ix.tree.Len()))

	first, _ := ix.tree.Min()
	return rec, first == rec
}

// Earliest returns the record with the smallest expiry.
func (ix *Index[K, E]) Earliest() (*Record[K, E], bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.tree.Min()
}

// Remove deletes rec. Removing a record that is already gone is a no-op.
func (ix *Index[K, E]) Remove(rec *Record[K, E]) bool {
	if rec == nil {
		return false
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	_, ok := ix.tree.Delete(rec)
	if ok {
		ix.metrics.Set(metrics.IndexRecords, int64(ix.tree.Len()))
	}
	return ok
}

// Ascend calls fn for each record from the earliest expiry onwards until fn
// returns false. It walks a snapshot, so fn may insert into or remove from
// the index.
func (ix *Index[K, E]) Ascend(fn func(rec *Record[K, E]) bool) {
	ix.mu.Lock()
	snap := ix.tree.Clone()
	ix.mu.Unlock()

	snap.Ascend(fn)
}

// Len returns the number of scheduled records, stale ones included.
func (ix *Index[K, E]) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.tree.Len()
}
