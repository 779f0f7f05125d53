package plugins

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// allocAndWrite allocates guest memory via the module's Alloc export and
// copies data into it, returning the guest pointer. Empty data writes nothing
// and returns pointer 0; the guest sees a zero-length buffer.
func allocAndWrite(
	ctx context.Context,
	mod api.Module,
	alloc api.Function,
	data []byte,
) (uint32, error) {
	if len(data) == 0 {
		return 0, nil
	}

	results, err := alloc.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("alloc failed: %w", err)
	}
	if len(results) < 1 {
		return 0, errors.New("alloc returned no results")
	}

	ptr := api.DecodeU32(results[0])
	if !mod.Memory().Write(ptr, data) {
		return 0, errors.New("memory write failed: bounds exceeded")
	}

	return ptr, nil
}

// readPacked reads the guest buffer referenced by a packed ptr<<32|len result.
// A zero result reads as an empty buffer.
func readPacked(mod api.Module, combined uint64) ([]byte, error) {
	if combined == 0 {
		return nil, nil
	}

	ptr := uint32(combined >> 32)
	length := uint32(combined)
	data, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return nil, errors.New("memory read failed: bounds exceeded")
	}

	// Copy out: the backing array belongs to guest linear memory and may be
	// reused by the next allocation.
	out := make([]byte, len(data))
	copy(out, data)

	return out, nil
}
