package index

import "time"

// Record schedules Key for reaping at ExpiresAt.
//
// Entry carries the identity of the store entry the record was created for;
// once the key is overwritten or removed the record is stale.
type Record[K comparable, E any] struct {
	Key       K
	ExpiresAt time.Time
	Entry     E

	seq uint64
}

// Due reports whether the record's expiry is at or before now.
func (r *Record[K, E]) Due(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// less orders records by expiry, then by insertion order.
func less[K comparable, E any](a, b *Record[K, E]) bool {
	if !a.ExpiresAt.Equal(b.ExpiresAt) {
		return a.ExpiresAt.Before(b.ExpiresAt)
	}
	return a.seq < b.seq
}
