package plugins

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
)

// namePattern constrains plugin names to the same shape the file naming
// convention produces: lowercase start, then lowercase/digits/underscore/dash.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Metadata is a plugin's validated declaration for one load cycle. Immutable
// once parsed; reloads parse a fresh copy.
type Metadata struct {
	Name             string   `json:"name"`
	Version          string   `json:"version"`
	Summary          string   `json:"summary,omitempty"`
	Features         []string `json:"features,omitempty"`
	DependsOn        []string `json:"dependsOn,omitempty"`
	MinHostVersion   string   `json:"minHostVersion,omitempty"`
	MaxHostVersion   string   `json:"maxHostVersion,omitempty"`
	EnabledByDefault bool     `json:"enabledByDefault"`
	Tags             []string `json:"tags,omitempty"`
}

// manifestJSON is the raw declaration shape; EnabledByDefault is a pointer so
// an absent field and an explicit false stay distinguishable.
type manifestJSON struct {
	Name             string   `json:"name"`
	Version          string   `json:"version"`
	Summary          string   `json:"summary"`
	Features         []string `json:"features"`
	DependsOn        []string `json:"dependsOn"`
	MinHostVersion   string   `json:"minHostVersion"`
	MaxHostVersion   string   `json:"maxHostVersion"`
	EnabledByDefault *bool    `json:"enabledByDefault"`
	Tags             []string `json:"tags"`
}

// ParseManifest decodes a candidate's metadata declaration, applies the
// documented defaults, and validates it against the identifier derived from
// the candidate's file name.
func ParseManifest(identifier string, data []byte) (*Metadata, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrManifestMissing
	}
	if data[0] != '{' {
		return nil, ErrNotMapping
	}

	var raw manifestJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotMapping, err)
	}

	meta := &Metadata{
		Name:             raw.Name,
		Version:          raw.Version,
		Summary:          raw.Summary,
		Features:         dedupe(raw.Features),
		DependsOn:        dedupe(raw.DependsOn),
		MinHostVersion:   raw.MinHostVersion,
		MaxHostVersion:   raw.MaxHostVersion,
		EnabledByDefault: raw.EnabledByDefault == nil || *raw.EnabledByDefault,
		Tags:             dedupe(raw.Tags),
	}
	meta.applyDefaults()

	if err := meta.Validate(identifier); err != nil {
		return nil, err
	}

	return meta, nil
}

// applyDefaults fills optional fields the declaration omitted.
func (m *Metadata) applyDefaults() {
	if m.Version == "" {
		m.Version = "0.0.0"
	}
}

// Validate checks the metadata against the schema. The identifier is the name
// derived from the candidate's file; the declared name must match it so the
// registry key, the dependency graph, and the watch paths stay consistent.
// Passing the declared name itself skips the mismatch check (cache path).
func (m *Metadata) Validate(identifier string) error {
	if m.Name == "" {
		return ErrNameMissing
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: %q", ErrNameInvalid, m.Name)
	}
	if m.Name != identifier {
		return fmt.Errorf("%w: declared %q, file says %q", ErrNameMismatch, m.Name, identifier)
	}

	if _, err := ParseVersion(m.Version); err != nil {
		return fmt.Errorf("version %q: %w", m.Version, err)
	}
	if m.MinHostVersion != "" {
		if _, err := ParseVersion(m.MinHostVersion); err != nil {
			return fmt.Errorf("minHostVersion %q: %w", m.MinHostVersion, err)
		}
	}
	if m.MaxHostVersion != "" {
		if _, err := ParseVersion(m.MaxHostVersion); err != nil {
			return fmt.Errorf("maxHostVersion %q: %w", m.MaxHostVersion, err)
		}
	}

	for _, dep := range m.DependsOn {
		if dep == m.Name {
			return ErrSelfDependency
		}
		if !namePattern.MatchString(dep) {
			return fmt.Errorf("%w: dependency %q", ErrNameInvalid, dep)
		}
	}

	return nil
}

// Clone returns a deep copy, used when cached metadata is handed out.
func (m *Metadata) Clone() *Metadata {
	c := *m
	c.Features = append([]string(nil), m.Features...)
	c.DependsOn = append([]string(nil), m.DependsOn...)
	c.Tags = append([]string(nil), m.Tags...)

	return &c
}

// dedupe drops repeated entries preserving first-occurrence order, turning the
// declared JSON arrays into sets.
func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}
