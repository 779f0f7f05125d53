// Package plugins implements plugin discovery, dependency resolution, and the
// hot-reload runtime for WASM plugin modules.
package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero/api"
)

// PluginInstance holds a live WASM module and its exported functions.
// Lifecycle hooks are nil when the module does not export them; every caller
// checks before invoking. Calls into one instance are serialized by mu since
// guest linear memory is single-threaded.
type PluginInstance struct {
	Module     api.Module
	AllocFn    api.Function
	FreeFn     api.Function
	ManifestFn api.Function
	RegisterFn api.Function
	InvokeFn   api.Function

	CaptureFn  api.Function
	RestoreFn  api.Function
	ReloadedFn api.Function

	mu sync.Mutex
}

// newPluginInstance wires up a freshly instantiated module's exports.
// Alloc and Free are the only exports required at instantiation time; the
// rest are checked where the lifecycle needs them.
func newPluginInstance(module api.Module) (*PluginInstance, error) {
	allocFn := module.ExportedFunction("Alloc")
	if allocFn == nil {
		return nil, errors.New("plugin does not export Alloc")
	}

	freeFn := module.ExportedFunction("Free")
	if freeFn == nil {
		return nil, errors.New("plugin does not export Free")
	}

	return &PluginInstance{
		Module:     module,
		AllocFn:    allocFn,
		FreeFn:     freeFn,
		ManifestFn: module.ExportedFunction("Manifest"),
		RegisterFn: module.ExportedFunction("Register"),
		InvokeFn:   module.ExportedFunction("Invoke"),
		CaptureFn:  module.ExportedFunction("CaptureState"),
		RestoreFn:  module.ExportedFunction("RestoreState"),
		ReloadedFn: module.ExportedFunction("OnReloaded"),
	}, nil
}

// manifest calls the Manifest export and returns the raw declaration bytes.
func (pi *PluginInstance) manifest(ctx context.Context) ([]byte, error) {
	if pi.ManifestFn == nil {
		return nil, ErrManifestMissing
	}

	pi.mu.Lock()
	defer pi.mu.Unlock()

	results, err := pi.ManifestFn.Call(ctx)
	if err != nil {
		return nil, fmt.Errorf("manifest call failed: %w", err)
	}
	if len(results) < 1 {
		return nil, errors.New("manifest returned no result")
	}

	return readPacked(pi.Module, results[0])
}

// register calls the Register export and decodes the returned command list.
func (pi *PluginInstance) register(ctx context.Context) ([]string, error) {
	if pi.RegisterFn == nil {
		return nil, errors.New("plugin does not export Register")
	}

	pi.mu.Lock()
	defer pi.mu.Unlock()

	results, err := pi.RegisterFn.Call(ctx)
	if err != nil {
		return nil, fmt.Errorf("register call failed: %w", err)
	}
	if len(results) < 1 {
		return nil, errors.New("register returned no result")
	}

	data, err := readPacked(pi.Module, results[0])
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("register did not return a command list: %w", err)
	}

	return ids, nil
}

// invoke dispatches one registered command to the Invoke export.
func (pi *PluginInstance) invoke(ctx context.Context, cmd string, payload []byte) ([]byte, error) {
	if pi.InvokeFn == nil {
		return nil, errors.New("plugin does not export Invoke")
	}

	pi.mu.Lock()
	defer pi.mu.Unlock()

	cmdPtr, err := allocAndWrite(ctx, pi.Module, pi.AllocFn, []byte(cmd))
	if err != nil {
		return nil, fmt.Errorf("writing command id: %w", err)
	}

	payloadPtr, err := allocAndWrite(ctx, pi.Module, pi.AllocFn, payload)
	if err != nil {
		return nil, fmt.Errorf("writing payload: %w", err)
	}

	results, err := pi.InvokeFn.Call(ctx,
		uint64(cmdPtr), uint64(len(cmd)),
		uint64(payloadPtr), uint64(len(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("plugin execution error: %w", err)
	}
	if len(results) < 1 {
		return nil, errors.New("invalid execution result")
	}

	return readPacked(pi.Module, results[0])
}

// captureState runs the optional CaptureState hook; absent hook captures nothing.
func (pi *PluginInstance) captureState(ctx context.Context) ([]byte, error) {
	if pi.CaptureFn == nil {
		return nil, nil
	}

	pi.mu.Lock()
	defer pi.mu.Unlock()

	results, err := pi.CaptureFn.Call(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture hook failed: %w", err)
	}
	if len(results) < 1 || results[0] == 0 {
		return nil, nil
	}

	return readPacked(pi.Module, results[0])
}

// restoreState feeds a captured payload to the optional RestoreState hook.
func (pi *PluginInstance) restoreState(ctx context.Context, payload []byte) error {
	if pi.RestoreFn == nil || len(payload) == 0 {
		return nil
	}

	pi.mu.Lock()
	defer pi.mu.Unlock()

	ptr, err := allocAndWrite(ctx, pi.Module, pi.AllocFn, payload)
	if err != nil {
		return fmt.Errorf("writing state payload: %w", err)
	}

	if _, err := pi.RestoreFn.Call(ctx, uint64(ptr), uint64(len(payload))); err != nil {
		return fmt.Errorf("restore hook failed: %w", err)
	}

	return nil
}

// onReloaded fires the optional post-swap notification hook.
func (pi *PluginInstance) onReloaded(ctx context.Context) error {
	if pi.ReloadedFn == nil {
		return nil
	}

	pi.mu.Lock()
	defer pi.mu.Unlock()

	if _, err := pi.ReloadedFn.Call(ctx); err != nil {
		return fmt.Errorf("reloaded hook failed: %w", err)
	}

	return nil
}

// close releases the module, waiting out any in-flight call first.
func (pi *PluginInstance) close(ctx context.Context) error {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	return pi.Module.Close(ctx)
}
