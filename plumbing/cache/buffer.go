package cache

import (
	"container/list"
	"sync"
)

// Buffer is an LRU cache keyed by an opaque int64 (a pack offset, in
// practice), storing raw delta-base byte buffers while a packfile is
// being resolved.
type Buffer interface {
	Put(k int64, b []byte)
	Get(k int64) ([]byte, bool)
	Clear()
}

type bufferEntry struct {
	key   int64
	slice []byte
}

// BufferLRU is a Buffer cache that evicts least-recently-used entries once
// the sum of buffer lengths exceeds MaxSize.
type BufferLRU struct {
	MaxSize FileSize

	mu         sync.Mutex
	ll         *list.List
	cache      map[int64]*list.Element
	actualSize FileSize
}

// NewBufferLRU returns a BufferLRU bounded at maxSize bytes.
func NewBufferLRU(maxSize FileSize) *BufferLRU {
	return &BufferLRU{MaxSize: maxSize}
}

// NewBufferLRUDefault returns a BufferLRU bounded at DefaultMaxSize.
func NewBufferLRUDefault() *BufferLRU {
	return NewBufferLRU(DefaultMaxSize)
}

// Put adds b under k, evicting older entries as needed.
func (c *BufferLRU) Put(k int64, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache == nil {
		c.actualSize = 0
		c.cache = make(map[int64]*list.Element)
		c.ll = list.New()
	}

	if ee, ok := c.cache[k]; ok {
		c.ll.MoveToFront(ee)
		old := ee.Value.(*bufferEntry)
		c.actualSize -= FileSize(len(old.slice))
		ee.Value = &bufferEntry{k, b}
		c.actualSize += FileSize(len(b))
	} else {
		ee := c.ll.PushFront(&bufferEntry{k, b})
		c.cache[k] = ee
		c.actualSize += FileSize(len(b))
	}

	for c.actualSize > c.MaxSize {
		last := c.ll.Back()
		if last == nil {
			c.actualSize = 0
			break
		}

		entry := last.Value.(*bufferEntry)
		c.ll.Remove(last)
		delete(c.cache, entry.key)
		c.actualSize -= FileSize(len(entry.slice))
	}
}

// Get returns the cached buffer for k, if present, moving it to the front.
func (c *BufferLRU) Get(k int64) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ee, ok := c.cache[k]
	if !ok {
		return nil, false
	}

	c.ll.MoveToFront(ee)
	return ee.Value.(*bufferEntry).slice, true
}

// Clear empties the cache.
func (c *BufferLRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll = nil
	c.cache = nil
	c.actualSize = 0
}

var _ Buffer = (*BufferLRU)(nil)
