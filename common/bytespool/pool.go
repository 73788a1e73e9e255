// Package bytespool keeps size-classed scratch buffers for symlink targets
// and readdir spill entries.
package bytespool

import "sync"

// Buffers smaller than MinPoolSize are never pooled. Each class doubles the
// previous one, so the largest pooled buffer is MinPoolSize<<(numPools-1).
const (
	numPools    = 6
	MinPoolSize = 2048

	// LinkBufferSize is enough for any symlink target the resolver accepts.
	LinkBufferSize = 16 * 1024
)

var (
	pools     [numPools]sync.Pool
	poolSizes [numPools]int32
)

func init() {
	size := int32(MinPoolSize)
	for i := range pools {
		sz := size
		pools[i].New = func() any {
			return make([]byte, sz)
		}
		poolSizes[i] = sz
		size <<= 1
	}
}

func classOf(size int32) int {
	for i, ps := range poolSizes {
		if size <= ps {
			return i
		}
	}
	return -1
}

// Alloc returns a slice of at least size bytes. Its length is the class size,
// callers reslice it.
func Alloc(size int32) []byte {
	if size < MinPoolSize {
		return make([]byte, size)
	}
	if i := classOf(size); i >= 0 {
		return pools[i].Get().([]byte)
	}
	return make([]byte, size)
}

// Free returns b to the class it was allocated from.
func Free(b []byte) {
	size := int32(cap(b))
	if size < MinPoolSize {
		return
	}
	for i := numPools - 1; i >= 0; i-- {
		if size == poolSizes[i] {
			pools[i].Put(b[:size])
			return
		}
	}
}
