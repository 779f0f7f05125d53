package plugins

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// cacheEntry is one persisted scan result, keyed by absolute path.
type cacheEntry struct {
	Path      string    `json:"path"`
	ModTimeNs int64     `json:"mtime_ns"`
	Metadata  *Metadata `json:"metadata"`
}

// DiscoveryCache persists parsed metadata keyed by path and modification
// time so unchanged candidates skip extraction on later scans. Corruption or
// unreadability degrades to a full re-scan, never a failure.
type DiscoveryCache struct {
	path    string
	entries map[string]cacheEntry
}

// DefaultCachePath returns the fixed cache location outside any source tree.
func DefaultCachePath() string {
	return filepath.Join(os.Getenv("HOME"), ".plughub", "discovery_cache.json")
}

// NewDiscoveryCache creates a cache backed by the given file and loads any
// previously persisted entries.
func NewDiscoveryCache(path string) *DiscoveryCache {
	c := &DiscoveryCache{
		path:    path,
		entries: make(map[string]cacheEntry),
	}
	c.load()

	return c
}

func (c *DiscoveryCache) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Debug().Str("event", "cache_unreadable").Str("path", c.path).Err(err).
				Msg("discovery cache skipped")
		}

		return
	}

	var entries []cacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Debug().Str("event", "cache_corrupt").Str("path", c.path).Err(err).
			Msg("discovery cache discarded")

		return
	}

	for _, e := range entries {
		if e.Metadata == nil {
			continue
		}
		c.entries[e.Path] = e
	}
}

// Lookup returns cached metadata for a candidate whose modification time
// matches the persisted value. Any mismatch misses and forces re-extraction.
func (c *DiscoveryCache) Lookup(path string, modTime time.Time) (*Metadata, bool) {
	e, ok := c.entries[path]
	if !ok || e.ModTimeNs != modTime.UnixNano() {
		return nil, false
	}

	return e.Metadata.Clone(), true
}

// Store records a candidate's parsed metadata for the current scan.
func (c *DiscoveryCache) Store(path string, modTime time.Time, meta *Metadata) {
	c.entries[path] = cacheEntry{
		Path:      path,
		ModTimeNs: modTime.UnixNano(),
		Metadata:  meta.Clone(),
	}
}

// Flush drops entries for paths absent from the current scan and persists the
// rest. Write failures are logged, not propagated; the cache is an optimization.
func (c *DiscoveryCache) Flush(current map[string]struct{}) {
	for path := range c.entries {
		if _, ok := current[path]; !ok {
			delete(c.entries, path)
		}
	}

	entries := make([]cacheEntry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		log.Debug().Str("event", "cache_write_failed").Err(err).Msg("discovery cache not persisted")

		return
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		log.Debug().Str("event", "cache_write_failed").Err(err).Msg("discovery cache not persisted")

		return
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		log.Debug().Str("event", "cache_write_failed").Err(err).Msg("discovery cache not persisted")
	}
}
