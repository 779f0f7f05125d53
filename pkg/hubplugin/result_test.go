package hubplugin

import "testing"

// TestPackResult verifies that PackResult combines pointer and length into a uint64 value.
func TestPackResult(t *testing.T) {
	t.Parallel()

	highIn := uint32(0xDEADBEEF)
	lowIn := uint32(0xFEEDFACE)
	combined := PackResult(highIn, lowIn)

	high, low := UnpackResult(combined)
	if high != highIn || low != lowIn {
		t.Errorf("expected high=0x%X low=0x%X, got high=0x%X low=0x%X", highIn, lowIn, high, low)
	}
}

// TestUnpackZero verifies that the zero result unpacks to a nil buffer reference.
func TestUnpackZero(t *testing.T) {
	t.Parallel()

	ptr, length := UnpackResult(0)
	if ptr != 0 || length != 0 {
		t.Errorf("expected 0/0, got %d/%d", ptr, length)
	}
}
