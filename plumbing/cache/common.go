// Package cache implements bounded, LRU-evicted caches for decoded objects
// and raw delta-base buffers, used by storage/filesystem to avoid
// re-inflating the same pack entries on every tree walk.
package cache

// FileSize is a size in bytes, used both for cache capacities and for the
// size an individual entry is charged against that capacity.
type FileSize int64

const (
	Byte FileSize = 1 << (iota * 10)
	KiByte
	MiByte
	GiByte
)

// DefaultMaxSize is the capacity new*Default constructors use absent an
// explicit size: generous enough to hold a typical repository's working
// set of commits and trees without unbounded growth.
const DefaultMaxSize = 96 * MiByte
