package plugins

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	candidatePrefix = "plug_"
	candidateExt    = ".wasm"
)

// Candidate is a file matched by the plugin naming convention, not yet validated.
type Candidate struct {
	Identifier string
	Path       string
	ModTime    time.Time
}

// Scanner discovers plugin candidates across an ordered list of search paths.
type Scanner struct {
	paths []string
}

// NewScanner returns a scanner over the given search paths, built-in path first.
func NewScanner(paths ...string) *Scanner {
	return &Scanner{paths: paths}
}

// IdentifierFromPath derives a candidate identifier from a file path, or ""
// when the file does not follow the plug_<name>.wasm convention.
func IdentifierFromPath(path string) string {
	base := filepath.Base(path)
	if !strings.HasPrefix(base, candidatePrefix) || !strings.HasSuffix(base, candidateExt) {
		return ""
	}

	return strings.TrimSuffix(strings.TrimPrefix(base, candidatePrefix), candidateExt)
}

// Scan walks the search paths in order and returns candidates deduplicated by
// identifier, first occurrence winning. Within one directory candidates come
// in lexical file order. Unreadable paths are reported and skipped, never
// fatal to the scan.
func (s *Scanner) Scan() []Candidate {
	seen := make(map[string]struct{})
	var candidates []Candidate

	for _, dir := range s.paths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			derr := &DiscoveryError{Path: dir, Err: err}
			log.Warn().
				Str("event", "discovery_error").
				Str("path", dir).
				Err(derr).
				Msg("search path unreadable")

			continue
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}

			identifier := IdentifierFromPath(entry.Name())
			if identifier == "" {
				continue
			}
			if _, dup := seen[identifier]; dup {
				log.Debug().
					Str("event", "candidate_shadowed").
					Str("plugin", identifier).
					Str("path", filepath.Join(dir, entry.Name())).
					Msg("identifier already found on an earlier search path")

				continue
			}

			info, err := entry.Info()
			if err != nil {
				log.Warn().
					Str("event", "discovery_error").
					Str("path", filepath.Join(dir, entry.Name())).
					Err(err).
					Msg("candidate unreadable")

				continue
			}

			path := filepath.Join(dir, entry.Name())
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}

			seen[identifier] = struct{}{}
			candidates = append(candidates, Candidate{
				Identifier: identifier,
				Path:       path,
				ModTime:    info.ModTime(),
			})
		}
	}

	return candidates
}
