package mempool

import "unsafe"

// Counter tallies the size of a sequence of would-be allocations without
// performing them, mirroring MemoryCounter. Callers make one pass over a
// component's sub-allocations with Counter to learn the total size, then a
// second pass over the same sequence (in the same order) allocating for
// real out of one arena sized by Counter.Bytes. pkg/sampler and
// pkg/message do not use it; they allocate with direct Alloc calls.
type Counter struct {
	bytes uintptr
}

// Count records count elements of T, rounding up to a cache line boundary
// when aligned is true (matching MemoryCounter::al_alloc vs na_alloc).
func Count[T any](c *Counter, count int, aligned bool) {
	var zero T
	sz := uintptr(count) * unsafe.Sizeof(zero)
	if aligned {
		sz = alignUp(sz, cacheLine)
	}
	c.bytes += sz
}

// Bytes returns the total tallied so far.
func (c *Counter) Bytes() uintptr { return c.bytes }

const cacheLine = 64

func alignUp(n, align uintptr) uintptr {
	if n%align == 0 {
		return n
	}
	return n + (align - n%align)
}
