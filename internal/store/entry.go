package store

import "time"

// Entry is a single value held by the store.
//
// Entries are always handled by pointer: the pointer is the entry's identity.
// An overwriting Put installs a new *Entry, so a holder of the old pointer can
// tell that its entry is no longer current.
type Entry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// IsExpired reports whether the entry is expired at the given time.
// An entry expiring exactly at now counts as expired.
func (e *Entry[V]) IsExpired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}
