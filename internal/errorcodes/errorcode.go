// Package errorcodes defines wire-level response codes using a structured type.
// ProtocolError holds the two-character code and human-readable description.
package errorcodes

// Predefined response code instances.
var (
	Err00 = ProtocolError{"00", "No error"}
	Err01 = ProtocolError{"01", "Malformed request frame"}
	Err02 = ProtocolError{"02", "Unknown command"}
	Err03 = ProtocolError{"03", "Plugin execution failed"}
	Err04 = ProtocolError{"04", "Plugin registry unavailable"}
)

// ProtocolError represents a wire response error with its code and description.
type ProtocolError struct {
	Code        string // two-character response code
	Description string // human-readable description
}

// Error implements the Go error interface: "<Code>: <Description>".
func (e ProtocolError) Error() string {
	return e.Code + ": " + e.Description
}

// CodeOnly returns only the code (e.g., "02"), for embedding in responses.
func (e ProtocolError) CodeOnly() string {
	return e.Code
}
