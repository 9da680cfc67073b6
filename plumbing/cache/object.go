package cache

import (
	"container/list"
	"sync"

	"github.com/awesome-os/universal-git-sub008/plumbing"
)

// Object is an LRU cache keyed by OID, storing decoded plumbing.EncodedObject
// values. Implementations must be safe for concurrent use.
type Object interface {
	Put(o plumbing.EncodedObject)
	Get(k plumbing.Hash) (plumbing.EncodedObject, bool)
	Clear()
}

type objectEntry struct {
	hash   plumbing.Hash
	object plumbing.EncodedObject
}

// ObjectLRU is an Object cache that evicts the least-recently-used entries
// once the sum of cached object sizes exceeds MaxSize.
type ObjectLRU struct {
	MaxSize FileSize

	mu         sync.Mutex
	ll         *list.List
	cache      map[plumbing.Hash]*list.Element
	actualSize FileSize
}

// NewObjectLRU returns an ObjectLRU bounded at maxSize bytes.
func NewObjectLRU(maxSize FileSize) *ObjectLRU {
	return &ObjectLRU{MaxSize: maxSize}
}

// NewObjectLRUDefault returns an ObjectLRU bounded at DefaultMaxSize.
func NewObjectLRUDefault() *ObjectLRU {
	return NewObjectLRU(DefaultMaxSize)
}

// Put adds o to the cache, evicting older entries as needed to stay within
// MaxSize. Re-putting an already-cached hash refreshes its size and moves
// it to the front.
func (c *ObjectLRU) Put(o plumbing.EncodedObject) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache == nil {
		c.actualSize = 0
		c.cache = make(map[plumbing.Hash]*list.Element)
		c.ll = list.New()
	}

	hash := o.Hash()
	if ee, ok := c.cache[hash]; ok {
		c.ll.MoveToFront(ee)
		old := ee.Value.(*objectEntry)
		c.actualSize -= FileSize(old.object.Size())
		ee.Value = &objectEntry{hash, o}
		c.actualSize += FileSize(o.Size())
	} else {
		ee := c.ll.PushFront(&objectEntry{hash, o})
		c.cache[hash] = ee
		c.actualSize += FileSize(o.Size())
	}

	for c.actualSize > c.MaxSize {
		last := c.ll.Back()
		if last == nil {
			c.actualSize = 0
			break
		}

		entry := last.Value.(*objectEntry)
		c.ll.Remove(last)
		delete(c.cache, entry.hash)
		c.actualSize -= FileSize(entry.object.Size())
	}
}

// Get returns the cached object for k, if present, moving it to the front.
func (c *ObjectLRU) Get(k plumbing.Hash) (plumbing.EncodedObject, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ee, ok := c.cache[k]
	if !ok {
		return nil, false
	}

	c.ll.MoveToFront(ee)
	return ee.Value.(*objectEntry).object, true
}

// Clear empties the cache.
func (c *ObjectLRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll = nil
	c.cache = nil
	c.actualSize = 0
}

// NoopObject is an Object cache that never retains anything, used where the
// caller wants the cache interface without the memory cost (e.g. a one-shot
// `git verify-pack`).
type NoopObject struct{}

func (NoopObject) Put(plumbing.EncodedObject)                     {}
func (NoopObject) Get(plumbing.Hash) (plumbing.EncodedObject, bool) { return nil, false }
func (NoopObject) Clear()                                          {}

var _ Object = (*ObjectLRU)(nil)
var _ Object = NoopObject{}
