// Package hubplugin provides helper functions for WASM plugins.
package hubplugin

import "time"

// LogDebug sends a debug message to the host logger, attributed to this plugin.
func LogDebug(s string) {
	hostLogDebug(s)
}

// LogInfo sends an info message to the host logger.
func LogInfo(s string) {
	hostLogInfo(s)
}

// LogError sends an error message to the host logger.
func LogError(s string) {
	hostLogError(s)
}

// ConfigGet returns the host configuration value under plugins.<key>.
// Unset keys read as the empty string; the host never traps for them.
func ConfigGet(key string) string {
	packed := hostConfigGet(key)
	if packed == 0 {
		return ""
	}
	ptr, length := UnpackResult(packed)

	return string(ReadBytes(ptr, length))
}

// NowUTC returns the host's current UTC time.
func NowUTC() time.Time {
	ns := hostNowUTC()
	if ns == 0 {
		return time.Time{}
	}

	return time.Unix(0, int64(ns)).UTC()
}

// HostVersion returns the host's semantic version string, or "" outside a host.
func HostVersion() string {
	packed := hostHostVersion()
	if packed == 0 {
		return ""
	}
	ptr, length := UnpackResult(packed)

	return string(ReadBytes(ptr, length))
}
