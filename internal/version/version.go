// Package version carries the host version advertised to plugins.
package version

// Version is the host version compared against plugin min/max constraints.
// Overridable at runtime via the host.version configuration key.
const Version = "1.4.0"
