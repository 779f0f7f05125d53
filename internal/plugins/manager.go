package plugins

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/andrei-cloud/plughub/internal/logging"
)

// Manager runs the discovery, validation, resolution, and registration
// pipeline and owns the live registry behind command invocation. Full load
// cycles and single-plugin hot reloads share the same swap discipline: build
// the replacement completely, then swap, then close what it replaced.
type Manager struct {
	//nolint:containedctx // Context is stored in the struct intentionally to allow reuse across plugin operations.
	ctx            context.Context
	runtime        wazero.Runtime
	registry       *Registry
	scanner        *Scanner
	policy         *Policy
	cache          *DiscoveryCache
	cfg            *viper.Viper
	hostVersion    Version
	hostVersionRaw string

	// mu serializes load, reload, and unload cycles. Invocation never takes it.
	mu sync.Mutex
}

// Options configures a Manager.
type Options struct {
	SearchPaths []string
	Allow       []string
	Deny        []string
	CachePath   string // empty disables the discovery cache
	HostVersion string
	Config      *viper.Viper
}

// NewManager returns a Manager ready to load plugins from the configured
// search paths. The runtime is created on the first load cycle.
func NewManager(ctx context.Context, opts Options) (*Manager, error) {
	if len(opts.SearchPaths) == 0 {
		return nil, ErrNoSearchPaths
	}

	hostVersion, err := ParseVersion(opts.HostVersion)
	if err != nil {
		return nil, fmt.Errorf("host version %q: %w", opts.HostVersion, err)
	}

	m := &Manager{
		ctx:            ctx,
		registry:       NewRegistry(),
		scanner:        NewScanner(opts.SearchPaths...),
		policy:         NewPolicy(opts.Allow, opts.Deny),
		cfg:            opts.Config,
		hostVersion:    hostVersion,
		hostVersionRaw: opts.HostVersion,
	}
	if opts.CachePath != "" {
		m.cache = NewDiscoveryCache(opts.CachePath)
	}

	return m, nil
}

// stagedCandidate carries one candidate through a load cycle. A non-empty
// detail marks the candidate failed before eligibility; inst is nil when the
// metadata came from the discovery cache and no registration needed it yet.
type stagedCandidate struct {
	cand   Candidate
	meta   *Metadata
	inst   *PluginInstance
	ids    []string
	detail string
}

// decision is the eligibility outcome for one validated plugin. Planned
// registrations count as satisfied for dependents even when the registration
// itself later fails; the dependent attempts and fails on its own.
type decision struct {
	state  State
	detail string
}

// LoadAll runs a full load cycle: scan the search paths, validate each
// candidate, apply the version and policy gates, resolve dependency order
// among the survivors, register the eligible plugins into a fresh runtime,
// then swap it in and close the previous one. Per-plugin failures degrade
// that plugin only; the cycle itself fails only when the replacement runtime
// cannot be built.
func (m *Manager) LoadAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := m.scanner.Scan()

	// fresh runtime for the new generation of instances.
	newRt := wazero.NewRuntime(m.ctx)
	wasi_snapshot_preview1.MustInstantiate(m.ctx, newRt)

	hostFns := NewHostFunctions(newRt, m.cfg, m.hostVersionRaw)
	if err := hostFns.Register(m.ctx); err != nil {
		_ = newRt.Close(m.ctx)

		return err
	}

	staged := make([]*stagedCandidate, 0, len(candidates))
	valid := make([]*Metadata, 0, len(candidates))
	for _, cand := range candidates {
		st := m.validateCandidate(newRt, cand)
		staged = append(staged, st)
		if st.detail == "" {
			valid = append(valid, st.meta)
		}
	}

	decisions, order := m.decideEligibility(valid)
	m.registerEligible(newRt, staged, order, decisions)

	entries := make(map[string]*RegistryEntry, len(staged))
	var registered, rejected, failed int

	for _, st := range staged {
		entry := m.buildEntry(st, decisions)
		entries[entry.Metadata.Name] = entry

		switch entry.State {
		case StateRegistered:
			registered++
		case StateFailed:
			failed++
			logging.LogPluginOutcome(entry.Metadata.Name, entry.State.String(), entry.ErrorDetail)
		default:
			rejected++
			logging.LogPluginOutcome(entry.Metadata.Name, entry.State.String(), entry.ErrorDetail)
		}
	}

	old := m.registry.replaceAll(entries)
	oldRt := m.runtime
	m.runtime = newRt

	for _, inst := range old {
		_ = inst.close(m.ctx)
	}
	if oldRt != nil {
		if err := oldRt.Close(m.ctx); err != nil {
			log.Error().Err(err).Msg("failed to close previous runtime")
		}
	}

	if m.cache != nil {
		current := make(map[string]struct{}, len(candidates))
		for _, c := range candidates {
			current[c.Path] = struct{}{}
		}
		m.cache.Flush(current)
	}

	logging.LogCycleSummary(registered, rejected, failed)

	return nil
}

// validateCandidate extracts and validates one candidate's metadata. Cache
// hits skip instantiation entirely; registration instantiates lazily if the
// plugin gets that far.
func (m *Manager) validateCandidate(rt wazero.Runtime, cand Candidate) *stagedCandidate {
	st := &stagedCandidate{cand: cand}

	if m.cache != nil {
		if meta, ok := m.cache.Lookup(cand.Path, cand.ModTime); ok {
			log.Debug().
				Str("event", "cache_hit").
				Str("plugin", cand.Identifier).
				Msg("metadata served from discovery cache")
			st.meta = meta

			return st
		}
	}

	inst, err := m.instantiate(rt, cand.Identifier, cand.Path)
	if err != nil {
		st.detail = (&MetadataError{Identifier: cand.Identifier, Err: err}).Error()

		return st
	}

	raw, err := inst.manifest(m.ctx)
	if err != nil {
		_ = inst.close(m.ctx)
		st.detail = (&MetadataError{Identifier: cand.Identifier, Err: err}).Error()

		return st
	}

	meta, err := ParseManifest(cand.Identifier, raw)
	if err != nil {
		_ = inst.close(m.ctx)
		st.detail = (&MetadataError{Identifier: cand.Identifier, Err: err}).Error()

		return st
	}

	st.meta = meta
	st.inst = inst

	if m.cache != nil {
		m.cache.Store(cand.Path, cand.ModTime, meta)
	}

	return st
}

// instantiate loads a wasm file into the runtime under the given module name.
func (m *Manager) instantiate(rt wazero.Runtime, name, path string) (*PluginInstance, error) {
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin file: %w", err)
	}

	compiled, err := rt.CompileModule(m.ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile plugin module: %w", err)
	}

	// Empty start function list means don't run any start functions.
	cfg := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions()

	module, err := rt.InstantiateModule(m.ctx, compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate plugin module: %w", err)
	}

	inst, err := newPluginInstance(module)
	if err != nil {
		_ = module.Close(m.ctx)

		return nil, err
	}

	return inst, nil
}

// decideEligibility applies the version gate and the policy gate to every
// validated plugin, resolves dependency order among the survivors, then walks
// that order checking dependencies against earlier decisions. Plugins left
// out of the order by a cycle are decided last: members carry the cycle
// itself, dependents of members carry the unmet dependency. The returned
// order contains only plugins that passed both gates.
func (m *Manager) decideEligibility(valid []*Metadata) (map[string]decision, []*Metadata) {
	decisions := make(map[string]decision, len(valid))

	eligible := make([]*Metadata, 0, len(valid))
	for _, meta := range valid {
		if verr := CheckHostCompatibility(m.hostVersion, m.hostVersionRaw, meta); verr != nil {
			decisions[meta.Name] = decision{StateVersionRejected, verr.Error()}

			continue
		}

		if ok, reason := m.policy.Enabled(meta); !ok {
			decisions[meta.Name] = decision{StatePolicyDisabled, reason}

			continue
		}

		eligible = append(eligible, meta)
	}

	order, cycleErr := Resolve(eligible)
	if cycleErr != nil {
		log.Warn().
			Str("event", "dependency_cycle").
			Strs("plugins", cycleErr.Members).
			Msg("cycle members excluded from this load cycle")
	}

	for _, meta := range order {
		unmet := ""
		for _, dep := range meta.DependsOn {
			if d, ok := decisions[dep]; !ok || d.state != StateRegistered {
				unmet = (&DependencyUnmetError{Plugin: meta.Name, Dependency: dep}).Error()

				break
			}
		}
		if unmet != "" {
			decisions[meta.Name] = decision{StateDependencyUnmet, unmet}

			continue
		}

		decisions[meta.Name] = decision{StateRegistered, ""}
	}

	if cycleErr == nil {
		return decisions, order
	}

	members := make(map[string]struct{}, len(cycleErr.Members))
	for _, name := range cycleErr.Members {
		members[name] = struct{}{}
	}

	for _, meta := range eligible {
		if _, done := decisions[meta.Name]; done {
			continue
		}

		if _, inCycle := members[meta.Name]; inCycle {
			decisions[meta.Name] = decision{StateDependencyUnmet, cycleErr.Error()}

			continue
		}

		detail := cycleErr.Error()
		for _, dep := range meta.DependsOn {
			if d, ok := decisions[dep]; !ok || d.state != StateRegistered {
				detail = (&DependencyUnmetError{Plugin: meta.Name, Dependency: dep}).Error()

				break
			}
		}
		decisions[meta.Name] = decision{StateDependencyUnmet, detail}
	}

	return decisions, order
}

// registerEligible calls Register on every plugin the eligibility walk
// admitted, in dependency order, binding command identifiers first-wins.
// Failures here flip the plugin to failed without touching its dependents.
func (m *Manager) registerEligible(
	rt wazero.Runtime,
	staged []*stagedCandidate,
	order []*Metadata,
	decisions map[string]decision,
) {
	byName := make(map[string]*stagedCandidate, len(staged))
	for _, st := range staged {
		if st.meta != nil {
			byName[st.meta.Name] = st
		}
	}

	bound := make(map[string]string)

	for _, meta := range order {
		if decisions[meta.Name].state != StateRegistered {
			continue
		}

		st := byName[meta.Name]

		fail := func(err error) {
			decisions[meta.Name] = decision{
				StateFailed,
				(&RegistrationError{Plugin: meta.Name, Err: err}).Error(),
			}
			if st.inst != nil {
				_ = st.inst.close(m.ctx)
				st.inst = nil
			}
		}

		if st.inst == nil {
			inst, err := m.instantiate(rt, meta.Name, st.cand.Path)
			if err != nil {
				fail(err)

				continue
			}
			st.inst = inst
		}

		ids, err := st.inst.register(m.ctx)
		if err != nil {
			fail(err)

			continue
		}
		if err := validateCommandIDs(ids); err != nil {
			fail(err)

			continue
		}
		if len(ids) > 0 && st.inst.InvokeFn == nil {
			fail(errors.New("plugin registers commands but does not export Invoke"))

			continue
		}

		var collision error
		for _, id := range ids {
			if owner, dup := bound[id]; dup {
				collision = fmt.Errorf("command %s already bound by plugin %s", id, owner)

				break
			}
		}
		if collision != nil {
			fail(collision)

			continue
		}

		for _, id := range ids {
			bound[id] = meta.Name
		}
		st.ids = ids

		log.Debug().
			Str("event", "plugin_registered").
			Str("plugin", meta.Name).
			Strs("commands", ids).
			Msg("loaded wasm plugin")
	}
}

// buildEntry turns a staged candidate plus its decision into a registry
// entry. Instances of plugins that validated but did not register are closed
// here; only registered entries carry one forward.
func (m *Manager) buildEntry(st *stagedCandidate, decisions map[string]decision) *RegistryEntry {
	entry := &RegistryEntry{
		Path:    st.cand.Path,
		ModTime: st.cand.ModTime,
	}

	if st.detail != "" {
		entry.Metadata = &Metadata{Name: st.cand.Identifier, Version: "0.0.0"}
		entry.State = StateFailed
		entry.ErrorDetail = st.detail

		return entry
	}

	d := decisions[st.meta.Name]
	entry.Metadata = st.meta
	entry.State = d.state
	entry.ErrorDetail = d.detail

	if d.state == StateRegistered {
		entry.instance = st.inst
		entry.CommandIDs = st.ids
		entry.Generation = 1

		return entry
	}

	if st.inst != nil {
		_ = st.inst.close(m.ctx)
		st.inst = nil
	}

	return entry
}

// command identifiers appear verbatim as the first token of a request frame,
// so empties, whitespace, and duplicates are rejected at registration time.
func validateCommandIDs(ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			return errors.New("empty command id")
		}
		if strings.ContainsAny(id, " \t\r\n") {
			return fmt.Errorf("command id %q contains whitespace", id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate command id %q", id)
		}
		seen[id] = struct{}{}
	}

	return nil
}

// InvokeCommand dispatches a registered command to its plugin. Resolution
// takes the registry read lock only; the call itself runs under the instance
// mutex, so a concurrent reload swap waits for it to finish.
func (m *Manager) InvokeCommand(ctx context.Context, commandID string, payload []byte) ([]byte, error) {
	inst, name, err := m.registry.instanceFor(commandID)
	if err != nil {
		return nil, err
	}

	resp, err := inst.invoke(ctx, commandID, payload)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", name, err)
	}

	log.Debug().
		Str("event", "plugin_response").
		Str("command", commandID).
		Str("plugin", name).
		Int("response_len", len(resp)).
		Msg("plugin execution response")

	return resp, nil
}

// Entries returns a sorted snapshot of every registry entry.
func (m *Manager) Entries() []RegistryEntry {
	return m.registry.Entries()
}

// Entry returns a snapshot of one plugin's registry entry.
func (m *Manager) Entry(name string) (RegistryEntry, bool) {
	return m.registry.Snapshot(name)
}

// HostVersion returns the version string plugins are checked against.
func (m *Manager) HostVersion() string {
	return m.hostVersionRaw
}

// Context returns the context plugin operations run under.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Close shuts down every plugin instance and the runtime.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, inst := range m.registry.replaceAll(make(map[string]*RegistryEntry)) {
		_ = inst.close(m.ctx)
	}

	if m.runtime == nil {
		return nil
	}

	err := m.runtime.Close(m.ctx)
	m.runtime = nil

	return err
}
