// Package hubplugin provides helper functions for WASM plugins.
package hubplugin

import "sync"

// BufferPool manages reusable byte slices for building command responses.
// Buffers are organized in size buckets and reused across invocations to
// reduce allocation churn inside long-lived plugin instances.
type BufferPool struct {
	pools   map[int]*sync.Pool
	buckets []int

	statsMu   sync.Mutex
	hits      int64
	misses    int64
	oversized int64
}

// NewBufferPool creates a pool with size buckets covering common response sizes.
func NewBufferPool() *BufferPool {
	buckets := []int{64, 128, 256, 512, 1024, 2048, 4096}
	pools := make(map[int]*sync.Pool, len(buckets))

	for _, size := range buckets {
		size := size
		pools[size] = &sync.Pool{
			New: func() any {
				return make([]byte, 0, size)
			},
		}
	}

	return &BufferPool{pools: pools, buckets: buckets}
}

// Get returns a buffer with length size and capacity of at least size.
// Requests above the largest bucket allocate directly and are never pooled.
func (bp *BufferPool) Get(size int) []byte {
	bucket := bp.bucketFor(size)
	if bucket == 0 {
		bp.statsMu.Lock()
		bp.oversized++
		bp.misses++
		bp.statsMu.Unlock()

		return make([]byte, size)
	}

	buf, ok := bp.pools[bucket].Get().([]byte)
	if !ok || cap(buf) < size {
		bp.statsMu.Lock()
		bp.misses++
		bp.statsMu.Unlock()

		return make([]byte, size, bucket)
	}

	bp.statsMu.Lock()
	bp.hits++
	bp.statsMu.Unlock()

	return buf[:size]
}

// Put clears a buffer and returns it to its bucket. Oversized buffers are dropped.
func (bp *BufferPool) Put(buf []byte) {
	if buf == nil {
		return
	}

	bucket := bp.bucketFor(cap(buf))
	if bucket == 0 || bucket != cap(buf) {
		return
	}

	for i := range buf {
		buf[i] = 0
	}
	bp.pools[bucket].Put(buf[:0])
}

// Prewarm seeds each bucket with count empty buffers.
func (bp *BufferPool) Prewarm(count int) {
	for _, size := range bp.buckets {
		for i := 0; i < count; i++ {
			bp.pools[size].Put(make([]byte, 0, size))
		}
	}
}

// Stats reports hit/miss/oversized counters since creation.
func (bp *BufferPool) Stats() (hits, misses, oversized int64) {
	bp.statsMu.Lock()
	defer bp.statsMu.Unlock()

	return bp.hits, bp.misses, bp.oversized
}

// BucketSizes returns a copy of the configured bucket sizes.
func (bp *BufferPool) BucketSizes() []int {
	sizes := make([]int, len(bp.buckets))
	copy(sizes, bp.buckets)

	return sizes
}

// bucketFor returns the smallest bucket holding size bytes, or 0 when none fits.
func (bp *BufferPool) bucketFor(size int) int {
	for _, b := range bp.buckets {
		if b >= size {
			return b
		}
	}

	return 0
}
