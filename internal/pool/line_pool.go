// Package pool provides reusable buffers for formatting log records.
// Uses sync.Pool for automatic memory reuse.
package pool

import "sync"

const (
	// DefaultLineCapacity is the initial capacity of a line buffer.
	// Large enough for a record with a short diagnostic context.
	DefaultLineCapacity = 1024

	// MaxRetainedCapacity is the largest buffer returned to the pool.
	// Buffers grown by huge contexts are dropped instead.
	MaxRetainedCapacity = 64 << 10
)

var linePool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, DefaultLineCapacity)
		return &b
	},
}

// Get returns an empty line buffer.
func Get() *[]byte {
	b := linePool.Get().(*[]byte)
	*b = (*b)[:0]
	return b
}

// Put returns b to the pool. The caller must not use b afterwards.
func Put(b *[]byte) {
	if b == nil || cap(*b) > MaxRetainedCapacity {
		return
	}
	linePool.Put(b)
}
