package plugins

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// HostFunctions builds the env module exposing context services to plugins:
// structured logging, configuration lookup, the UTC clock, and the host
// version. Together with command binding this is the registration surface a
// plugin sees.
type HostFunctions struct {
	builder     wazero.HostModuleBuilder
	cfg         *viper.Viper
	hostVersion string
	clock       func() time.Time
}

// NewHostFunctions creates a host functions provider for the given runtime.
// cfg may be nil; plugins then read all configuration keys as unset.
func NewHostFunctions(runtime wazero.Runtime, cfg *viper.Viper, hostVersion string) *HostFunctions {
	return &HostFunctions{
		builder:     runtime.NewHostModuleBuilder("env"),
		cfg:         cfg,
		hostVersion: hostVersion,
		clock:       time.Now,
	}
}

// Register adds all host functions to the runtime's env module.
func (h *HostFunctions) Register(ctx context.Context) error {
	h.builder.NewFunctionBuilder().
		WithFunc(h.logDebug).
		Export("log_debug")

	h.builder.NewFunctionBuilder().
		WithFunc(h.logInfo).
		Export("log_info")

	h.builder.NewFunctionBuilder().
		WithFunc(h.logError).
		Export("log_error")

	h.builder.NewFunctionBuilder().
		WithFunc(h.configGet).
		Export("config_get")

	h.builder.NewFunctionBuilder().
		WithFunc(h.nowUTC).
		Export("now_utc")

	h.builder.NewFunctionBuilder().
		WithFunc(h.version).
		Export("host_version")

	if _, err := h.builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("failed to instantiate host functions module: %w", err)
	}

	return nil
}

// readMemory safely reads bytes from WASM module memory.
func readMemory(mod api.Module, ptr, size uint32) ([]byte, error) {
	if mod == nil {
		return nil, fmt.Errorf("nil module")
	}

	memory := mod.Memory()
	if memory == nil {
		return nil, fmt.Errorf("no memory exported")
	}

	data, ok := memory.Read(ptr, size)
	if !ok {
		return nil, fmt.Errorf("failed to read memory at %d[%d]", ptr, size)
	}

	return data, nil
}

// writeToGuest allocates guest memory through the module's own Alloc export,
// writes data, and returns the packed result. 0 signals failure to the guest.
func writeToGuest(ctx context.Context, mod api.Module, data []byte) uint64 {
	allocFn := mod.ExportedFunction("Alloc")
	if allocFn == nil {
		log.Error().Str("plugin", pluginFromModule(mod)).Msg("guest has no Alloc export")
		return 0
	}

	results, err := allocFn.Call(ctx, uint64(len(data)))
	if err != nil || len(results) == 0 {
		log.Error().Err(err).Str("plugin", pluginFromModule(mod)).
			Msg("failed to allocate guest memory")
		return 0
	}

	ptr := api.DecodeU32(results[0])
	if !mod.Memory().Write(ptr, data) {
		log.Error().Str("plugin", pluginFromModule(mod)).Msg("failed to write guest memory")
		return 0
	}

	return uint64(ptr)<<32 | uint64(len(data))
}

// pluginFromModule strips the instance suffix from a module name, leaving the
// plugin name. Reload replacements are instantiated as <name>#<id>.
func pluginFromModule(mod api.Module) string {
	name := mod.Name()
	if i := strings.IndexByte(name, '#'); i >= 0 {
		return name[:i]
	}

	return name
}

func (h *HostFunctions) logDebug(_ context.Context, mod api.Module, ptr, size uint32) {
	data, err := readMemory(mod, ptr, size)
	if err != nil {
		log.Error().Err(err).Msg("failed to read debug log message")
		return
	}

	log.Debug().
		Str("source", "wasm").
		Str("plugin", pluginFromModule(mod)).
		Msg(string(data))
}

func (h *HostFunctions) logInfo(_ context.Context, mod api.Module, ptr, size uint32) {
	data, err := readMemory(mod, ptr, size)
	if err != nil {
		log.Error().Err(err).Msg("failed to read info log message")
		return
	}

	log.Info().
		Str("source", "wasm").
		Str("plugin", pluginFromModule(mod)).
		Msg(string(data))
}

func (h *HostFunctions) logError(_ context.Context, mod api.Module, ptr, size uint32) {
	data, err := readMemory(mod, ptr, size)
	if err != nil {
		log.Error().Err(err).Msg("failed to read error log message")
		return
	}

	log.Error().
		Str("source", "wasm").
		Str("plugin", pluginFromModule(mod)).
		Msg(string(data))
}

// configGet resolves plugins.<key> from the host configuration and writes the
// value into guest memory. Unset keys return 0, which the guest SDK reads as
// the empty string; expected conditions never trap.
func (h *HostFunctions) configGet(ctx context.Context, mod api.Module, ptr, size uint32) uint64 {
	key, err := readMemory(mod, ptr, size)
	if err != nil {
		log.Error().Err(err).Msg("failed to read config key")
		return 0
	}

	if h.cfg == nil {
		return 0
	}

	value := h.cfg.GetString("plugins." + string(key))
	if value == "" {
		return 0
	}

	return writeToGuest(ctx, mod, []byte(value))
}

// nowUTC returns the current UTC time as unix nanoseconds.
func (h *HostFunctions) nowUTC(_ context.Context, _ api.Module) uint64 {
	return uint64(h.clock().UTC().UnixNano())
}

// version writes the host's semantic version into guest memory.
func (h *HostFunctions) version(ctx context.Context, mod api.Module) uint64 {
	return writeToGuest(ctx, mod, []byte(h.hostVersion))
}
