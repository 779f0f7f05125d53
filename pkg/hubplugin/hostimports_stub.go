//go:build !wasm

// This file just contains stubs for the WASM host imports, to avoid linter complains.
package hubplugin

func hostLogDebug(_ string) {}

func hostLogInfo(_ string) {}

func hostLogError(_ string) {}

func hostConfigGet(_ string) uint64 { return 0 }

func hostNowUTC() uint64 { return 0 }

func hostHostVersion() uint64 { return 0 }
