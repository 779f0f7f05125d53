// Package hubplugin provides helper functions for WASM plugins.
package hubplugin

// PackResult combines a pointer and a length into a single uint64 result.
func PackResult(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}

// UnpackResult splits a packed uint64 result into its pointer and length.
func UnpackResult(combined uint64) (ptr, length uint32) {
	return uint32(combined >> 32), uint32(combined)
}

// WriteResponse allocates guest memory for data, writes it, and returns the packed result.
func WriteResponse(data []byte) uint64 {
	if len(data) == 0 {
		return 0
	}

	ptr := Alloc(uint32(len(data)))
	WriteBytes(ptr, data)

	return PackResult(ptr, uint32(len(data)))
}

// WriteString packs a string the same way WriteResponse packs bytes.
func WriteString(s string) uint64 {
	return WriteResponse([]byte(s))
}
