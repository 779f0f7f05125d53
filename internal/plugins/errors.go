package plugins

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for metadata validation and command dispatch.
var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrManifestMissing = errors.New("manifest declaration absent")
	ErrNotMapping      = errors.New("manifest is not a key-value mapping")
	ErrNameMissing     = errors.New("manifest name field is required")
	ErrNameInvalid     = errors.New("manifest name is not a valid plugin name")
	ErrNameMismatch    = errors.New("manifest name does not match the file identifier")
	ErrVersionInvalid  = errors.New("version is not a valid semantic version")
	ErrSelfDependency  = errors.New("plugin cannot depend on itself")
	ErrNoSearchPaths   = errors.New("no plugin search paths configured")
)

// DiscoveryError reports an unreadable search path. Per-path, never fatal to a scan.
type DiscoveryError struct {
	Path string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery failed for %s: %v", e.Path, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// MetadataError reports a candidate whose metadata declaration could not be
// extracted or validated. Per-candidate, never fatal to the load cycle.
type MetadataError struct {
	Identifier string
	Err        error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("invalid metadata for plugin %s: %v", e.Identifier, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// CircularDependencyError names the members of a dependency cycle. Exactly
// those plugins are excluded; everything else loads normally.
type CircularDependencyError struct {
	Members []string
}

func (e *CircularDependencyError) Error() string {
	return "circular dependency among plugins: " + strings.Join(e.Members, ", ")
}

// DependencyUnmetError reports a dependency absent from, or rejected out of,
// the current load cycle. Affects the dependent transitively.
type DependencyUnmetError struct {
	Plugin     string
	Dependency string
}

func (e *DependencyUnmetError) Error() string {
	return fmt.Sprintf("plugin %s requires %s, which is not available", e.Plugin, e.Dependency)
}

// VersionIncompatibleError reports a host version outside a plugin's declared bounds.
type VersionIncompatibleError struct {
	Plugin string
	Host   string
	Min    string
	Max    string
}

func (e *VersionIncompatibleError) Error() string {
	min := e.Min
	if min == "" {
		min = "*"
	}
	max := e.Max
	if max == "" {
		max = "*"
	}

	return fmt.Sprintf(
		"plugin %s requires host version in [%s, %s], host is %s",
		e.Plugin, min, max, e.Host,
	)
}

// RegistrationError reports a failure while instantiating or registering a plugin.
type RegistrationError struct {
	Plugin string
	Err    error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registration failed for plugin %s: %v", e.Plugin, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// ReloadError reports a failed hot reload. The prior instance keeps running.
type ReloadError struct {
	Plugin string
	Err    error
}

func (e *ReloadError) Error() string {
	return fmt.Sprintf("reload failed for plugin %s: %v", e.Plugin, e.Err)
}

func (e *ReloadError) Unwrap() error { return e.Err }
