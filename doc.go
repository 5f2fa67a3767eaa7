// Package expiremap implements a thread-safe in-memory key/value map in which
// every entry carries a time-to-live.
//
// Three pieces cooperate:
//   - an entry store: sharded key -> entry table, where each entry is identified by pointer
//   - an expiration index: records ordered by expiry time, then by insertion
//   - a reaper: one goroutine per map that drains due records and sleeps until the next expiry
//
// Get checks expiry on its own, so an expired value is never returned even if
// the reaper has not caught up; the reaper only reclaims memory.
package expiremap
