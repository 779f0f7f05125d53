package hubplugin

import "testing"

// TestBufferPoolGetPut verifies buffers cycle through their bucket.
func TestBufferPoolGetPut(t *testing.T) {
	t.Parallel()

	pool := NewBufferPool()

	buf := pool.Get(100)
	if len(buf) != 100 {
		t.Errorf("expected length 100, got %d", len(buf))
	}
	if cap(buf) != 128 {
		t.Errorf("expected bucket capacity 128, got %d", cap(buf))
	}

	buf[0] = 0xFF
	pool.Put(buf)

	again := pool.Get(100)
	if again[0] != 0 {
		t.Error("expected pooled buffer to be cleared")
	}
}

// TestBufferPoolOversized verifies requests above the largest bucket bypass the pool.
func TestBufferPoolOversized(t *testing.T) {
	t.Parallel()

	pool := NewBufferPool()

	buf := pool.Get(8192)
	if len(buf) != 8192 {
		t.Errorf("expected length 8192, got %d", len(buf))
	}

	_, _, oversized := pool.Stats()
	if oversized != 1 {
		t.Errorf("expected 1 oversized allocation, got %d", oversized)
	}
}

// TestBufferPoolPrewarm verifies prewarmed buffers are served as hits.
func TestBufferPoolPrewarm(t *testing.T) {
	t.Parallel()

	pool := NewBufferPool()
	pool.Prewarm(2)

	_ = pool.Get(64)
	hits, _, _ := pool.Stats()
	if hits != 1 {
		t.Errorf("expected 1 hit after prewarm, got %d", hits)
	}
}

// TestBufferPoolBuckets verifies the bucket list is copied, not shared.
func TestBufferPoolBuckets(t *testing.T) {
	t.Parallel()

	pool := NewBufferPool()
	sizes := pool.BucketSizes()
	sizes[0] = 1

	if pool.BucketSizes()[0] != 64 {
		t.Error("expected internal buckets to be unaffected by caller mutation")
	}
}
