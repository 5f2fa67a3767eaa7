package store

import (
	"encoding/binary"
	"hash/maphash"

	"github.com/cespare/xxhash/v2"
)

// Hasher maps keys to 64-bit hashes such that keys equal under == always
// hash equal. Strings and integers go through xxhash; every other
// comparable key uses maphash, which follows == for floats (0 and -0),
// pointers (by address), interfaces and structs.
type Hasher[K comparable] struct {
	seed maphash.Seed
}

// NewHasher returns a hasher with a random seed.
func NewHasher[K comparable]() Hasher[K] {
	return Hasher[K]{seed: maphash.MakeSeed()}
}

// Sum64 hashes key.
func (h Hasher[K]) Sum64(key K) uint64 {
	switch k := any(key).(type) {
	case string:
		return xxhash.Sum64String(k)
	case int:
		return hashUint64(uint64(k))
	case int64:
		return hashUint64(uint64(k))
	case int32:
		return hashUint64(uint64(k))
	case uint:
		return hashUint64(uint64(k))
	case uint64:
		return hashUint64(k)
	case uint32:
		return hashUint64(uint64(k))
	}
	return maphash.Comparable(h.seed, key)
}

func hashUint64(v uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return xxhash.Sum64(b[:])
}
