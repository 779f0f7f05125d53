// Package hubplugin provides helper functions for WASM plugins.
package hubplugin

import "encoding/json"

// Manifest mirrors the metadata object a plugin declares via its Manifest export.
// Only Name is mandatory; the host fills documented defaults for the rest.
type Manifest struct {
	Name             string   `json:"name"`
	Version          string   `json:"version,omitempty"`
	Summary          string   `json:"summary,omitempty"`
	Features         []string `json:"features,omitempty"`
	DependsOn        []string `json:"dependsOn,omitempty"`
	MinHostVersion   string   `json:"minHostVersion,omitempty"`
	MaxHostVersion   string   `json:"maxHostVersion,omitempty"`
	EnabledByDefault *bool    `json:"enabledByDefault,omitempty"`
	Tags             []string `json:"tags,omitempty"`
}

// BoolPtr returns a pointer to b, for the EnabledByDefault field.
func BoolPtr(b bool) *bool {
	return &b
}

// PackJSON marshals v and returns it as a packed guest-memory result.
// A marshal failure packs an empty JSON object so the host sees a
// malformed-manifest error instead of a trap.
func PackJSON(v any) uint64 {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte("{}")
	}

	return WriteResponse(data)
}

// Commands packs a JSON array of command identifiers, the required return
// shape of the Register export.
func Commands(ids ...string) uint64 {
	if ids == nil {
		ids = []string{}
	}

	return PackJSON(ids)
}
