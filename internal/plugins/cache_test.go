package plugins

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDiscoveryCacheRoundTrip(t *testing.T) {
	t.Parallel()

	cachePath := filepath.Join(t.TempDir(), "cache", "discovery_cache.json")
	modTime := time.Unix(1724500000, 123)
	meta := &Metadata{Name: "echo", Version: "1.0.0", EnabledByDefault: true}

	c := NewDiscoveryCache(cachePath)
	c.Store("/plugins/plug_echo.wasm", modTime, meta)
	c.Flush(map[string]struct{}{"/plugins/plug_echo.wasm": {}})

	reloaded := NewDiscoveryCache(cachePath)
	got, ok := reloaded.Lookup("/plugins/plug_echo.wasm", modTime)
	if !ok {
		t.Fatal("expected a cache hit after reload")
	}
	if got.Name != "echo" || got.Version != "1.0.0" || !got.EnabledByDefault {
		t.Errorf("cached metadata = %+v", got)
	}
}

func TestDiscoveryCacheMissesOnModTimeChange(t *testing.T) {
	t.Parallel()

	cachePath := filepath.Join(t.TempDir(), "discovery_cache.json")
	modTime := time.Unix(1724500000, 0)

	c := NewDiscoveryCache(cachePath)
	c.Store("/plugins/plug_echo.wasm", modTime, &Metadata{Name: "echo", Version: "1.0.0"})

	if _, ok := c.Lookup("/plugins/plug_echo.wasm", modTime.Add(time.Nanosecond)); ok {
		t.Error("changed mod time must miss")
	}
	if _, ok := c.Lookup("/plugins/plug_other.wasm", modTime); ok {
		t.Error("unknown path must miss")
	}
	if _, ok := c.Lookup("/plugins/plug_echo.wasm", modTime); !ok {
		t.Error("matching path and mod time must hit")
	}
}

func TestDiscoveryCacheHandsOutCopies(t *testing.T) {
	t.Parallel()

	cachePath := filepath.Join(t.TempDir(), "discovery_cache.json")
	modTime := time.Unix(1724500000, 0)

	c := NewDiscoveryCache(cachePath)
	c.Store("/p/plug_echo.wasm", modTime, &Metadata{Name: "echo", Version: "1.0.0", DependsOn: []string{"store"}})

	first, ok := c.Lookup("/p/plug_echo.wasm", modTime)
	if !ok {
		t.Fatal("expected hit")
	}
	first.DependsOn[0] = "mutated"

	second, _ := c.Lookup("/p/plug_echo.wasm", modTime)
	if second.DependsOn[0] != "store" {
		t.Error("Lookup shares metadata between callers")
	}
}

func TestDiscoveryCacheCorruptFileDegrades(t *testing.T) {
	t.Parallel()

	cachePath := filepath.Join(t.TempDir(), "discovery_cache.json")
	if err := os.WriteFile(cachePath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("writing corrupt cache: %v", err)
	}

	c := NewDiscoveryCache(cachePath)
	if _, ok := c.Lookup("/plugins/plug_echo.wasm", time.Now()); ok {
		t.Error("corrupt cache should act empty")
	}

	// the cache still accepts fresh entries and persists over the corruption.
	modTime := time.Unix(1724500000, 0)
	c.Store("/plugins/plug_echo.wasm", modTime, &Metadata{Name: "echo", Version: "0.0.0"})
	c.Flush(map[string]struct{}{"/plugins/plug_echo.wasm": {}})

	if _, ok := NewDiscoveryCache(cachePath).Lookup("/plugins/plug_echo.wasm", modTime); !ok {
		t.Error("cache did not recover after corruption")
	}
}

func TestDiscoveryCacheFlushDropsVanishedPaths(t *testing.T) {
	t.Parallel()

	cachePath := filepath.Join(t.TempDir(), "discovery_cache.json")
	modTime := time.Unix(1724500000, 0)

	c := NewDiscoveryCache(cachePath)
	c.Store("/p/plug_kept.wasm", modTime, &Metadata{Name: "kept", Version: "0.0.0"})
	c.Store("/p/plug_gone.wasm", modTime, &Metadata{Name: "gone", Version: "0.0.0"})
	c.Flush(map[string]struct{}{"/p/plug_kept.wasm": {}})

	reloaded := NewDiscoveryCache(cachePath)
	if _, ok := reloaded.Lookup("/p/plug_kept.wasm", modTime); !ok {
		t.Error("surviving path evicted")
	}
	if _, ok := reloaded.Lookup("/p/plug_gone.wasm", modTime); ok {
		t.Error("vanished path persisted")
	}
}
