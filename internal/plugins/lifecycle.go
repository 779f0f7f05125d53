package plugins

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andrei-cloud/plughub/internal/logging"
)

// reloadState carries a plugin's captured state across a single reload. It
// lives for exactly that operation; nothing persists it.
type reloadState struct {
	pluginName string
	capturedAt time.Time
	payload    []byte
}

// SyncPath reconciles the registry with the file at path after a change
// notification settles: a missing file unloads its plugin, a new identifier
// hot-adds, a changed file behind a registered plugin hot-reloads, and a
// changed file behind a rejected one re-runs the gates from scratch.
func (m *Manager) SyncPath(path string) error {
	ident := IdentifierFromPath(path)
	if ident == "" {
		return nil
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	entry, known := m.registry.Snapshot(ident)

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if known && entry.Path == path {
			return m.UnloadPlugin(ident)
		}

		return nil
	}

	switch {
	case !known:
		return m.AddPlugin(path)
	case entry.Path != path:
		// same identifier from a different search path stays shadowed.
		log.Debug().
			Str("event", "candidate_shadowed").
			Str("plugin", ident).
			Str("path", path).
			Msg("identifier already provided by another path")

		return nil
	case entry.State == StateRegistered:
		return m.ReloadPlugin(ident)
	default:
		if err := m.UnloadPlugin(ident); err != nil {
			return err
		}

		return m.AddPlugin(path)
	}
}

// ReloadPlugin replaces a registered plugin's instance with one built from
// the current file, carrying captured state across. The sequence is capture,
// build, validate, register, restore, swap, close, notify; any failure
// before the swap closes the replacement and leaves the old instance
// serving. In-flight invocations finish on the instance they started on.
func (m *Manager) ReloadPlugin(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.registry.get(name)
	if !ok {
		return &ReloadError{Plugin: name, Err: errors.New("not present in registry")}
	}
	if entry.State != StateRegistered {
		return &ReloadError{Plugin: name, Err: fmt.Errorf("state is %s, not Registered", entry.State)}
	}

	reloadID := uuid.NewString()[:8]
	log.Debug().
		Str("event", "plugin_reload_begin").
		Str("plugin", name).
		Str("reload_id", reloadID).
		Msg("reloading plugin")

	var carried *reloadState
	switch payload, err := entry.instance.captureState(m.ctx); {
	case err != nil:
		log.Warn().
			Str("event", "plugin_state_capture_failed").
			Str("plugin", name).
			Str("reload_id", reloadID).
			Err(err).
			Msg("reloading without carried state")
	case len(payload) > 0:
		carried = &reloadState{pluginName: name, capturedAt: time.Now().UTC(), payload: payload}
		log.Debug().
			Str("event", "plugin_state_captured").
			Str("plugin", carried.pluginName).
			Time("captured_at", carried.capturedAt).
			Int("bytes", len(carried.payload)).
			Msg("state captured for carry-over")
	}

	path := entry.Path
	info, err := os.Stat(path)
	if err != nil {
		return m.rollbackReload(name, reloadID, nil, fmt.Errorf("stat plugin file: %w", err))
	}

	// The replacement shares the runtime, so its module name must not
	// collide with the instance it is about to replace.
	next, err := m.instantiate(m.runtime, name+"#"+reloadID, path)
	if err != nil {
		return m.rollbackReload(name, reloadID, nil, err)
	}

	raw, err := next.manifest(m.ctx)
	if err != nil {
		return m.rollbackReload(name, reloadID, next, &MetadataError{Identifier: name, Err: err})
	}

	meta, err := ParseManifest(name, raw)
	if err != nil {
		return m.rollbackReload(name, reloadID, next, err)
	}

	if d := m.decideLive(meta); d.state != StateRegistered {
		return m.rollbackReload(name, reloadID, next, errors.New(d.detail))
	}

	ids, err := next.register(m.ctx)
	if err != nil {
		return m.rollbackReload(name, reloadID, next, err)
	}
	if err := validateCommandIDs(ids); err != nil {
		return m.rollbackReload(name, reloadID, next, err)
	}
	if len(ids) > 0 && next.InvokeFn == nil {
		return m.rollbackReload(name, reloadID, next,
			errors.New("plugin registers commands but does not export Invoke"))
	}

	if carried != nil {
		if err := next.restoreState(m.ctx, carried.payload); err != nil {
			return m.rollbackReload(name, reloadID, next, err)
		}
	}

	prev, err := m.registry.swapInstance(name, next, meta, ids, path, info.ModTime())
	if err != nil {
		return m.rollbackReload(name, reloadID, next, err)
	}

	_ = prev.close(m.ctx)

	if err := next.onReloaded(m.ctx); err != nil {
		log.Warn().
			Str("event", "plugin_reload_notify_failed").
			Str("plugin", name).
			Str("reload_id", reloadID).
			Err(err).
			Msg("plugin is serving, notification hook failed")
	}

	if m.cache != nil {
		m.cache.Store(path, info.ModTime(), meta)
		m.flushCacheLocked()
	}

	generation := 0
	if e, ok := m.registry.get(name); ok {
		generation = e.Generation
	}

	log.Debug().
		Str("event", "plugin_reload_done").
		Str("plugin", name).
		Str("reload_id", reloadID).
		Int("generation", generation).
		Strs("commands", ids).
		Msg("plugin reloaded")

	return nil
}

// rollbackReload closes the failed replacement, if any, and reports the
// reload error. The previous instance keeps serving untouched.
func (m *Manager) rollbackReload(name, reloadID string, next *PluginInstance, cause error) error {
	if next != nil {
		_ = next.close(m.ctx)
	}

	rerr := &ReloadError{Plugin: name, Err: cause}
	log.Error().
		Str("event", "plugin_reload_rollback").
		Str("plugin", name).
		Str("reload_id", reloadID).
		Err(rerr).
		Msg("reload rolled back, previous instance kept serving")

	return rerr
}

// AddPlugin loads a single new file without disturbing the rest of the
// registry. The candidate runs the same gates as a full cycle; rejections
// are recorded as entries so the registry reflects the file's presence.
func (m *Manager) AddPlugin(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.runtime == nil {
		return errors.New("no runtime, run a load cycle first")
	}

	ident := IdentifierFromPath(path)
	if ident == "" {
		return fmt.Errorf("%s does not follow the plugin naming convention", path)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	if entry, ok := m.registry.get(ident); ok {
		if entry.Path != path {
			log.Debug().
				Str("event", "candidate_shadowed").
				Str("plugin", ident).
				Str("path", path).
				Msg("identifier already provided by another path")

			return nil
		}

		return fmt.Errorf("plugin %s already present", ident)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat plugin file: %w", err)
	}

	st := m.validateCandidate(m.runtime, Candidate{Identifier: ident, Path: path, ModTime: info.ModTime()})

	var d decision
	switch {
	case st.detail != "":
		d = decision{StateFailed, st.detail}
	default:
		d = m.decideLive(st.meta)
	}

	if d.state == StateRegistered && st.inst == nil {
		// metadata came from the discovery cache; build the instance now.
		inst, err := m.instantiate(m.runtime, ident, path)
		if err != nil {
			d = decision{StateFailed, (&RegistrationError{Plugin: ident, Err: err}).Error()}
		} else {
			st.inst = inst
		}
	}

	if d.state == StateRegistered {
		ids, err := st.inst.register(m.ctx)
		if err == nil {
			err = validateCommandIDs(ids)
		}
		if err == nil && len(ids) > 0 && st.inst.InvokeFn == nil {
			err = errors.New("plugin registers commands but does not export Invoke")
		}
		if err != nil {
			d = decision{StateFailed, (&RegistrationError{Plugin: ident, Err: err}).Error()}
		} else {
			st.ids = ids
		}
	}

	meta := st.meta
	if meta == nil {
		meta = &Metadata{Name: ident, Version: "0.0.0"}
	}

	entry := &RegistryEntry{
		Metadata:    meta,
		Path:        path,
		ModTime:     info.ModTime(),
		State:       d.state,
		ErrorDetail: d.detail,
	}

	if d.state == StateRegistered {
		entry.instance = st.inst
		entry.CommandIDs = st.ids
		entry.Generation = 1
	} else if st.inst != nil {
		_ = st.inst.close(m.ctx)
		st.inst = nil
	}

	if err := m.registry.add(entry); err != nil {
		// binding collision against live plugins; keep the file visible.
		if entry.instance != nil {
			_ = entry.instance.close(m.ctx)
		}
		entry.instance = nil
		entry.CommandIDs = nil
		entry.Generation = 0
		entry.State = StateFailed
		entry.ErrorDetail = (&RegistrationError{Plugin: ident, Err: err}).Error()

		if err := m.registry.add(entry); err != nil {
			return err
		}
	}

	if entry.State == StateRegistered {
		log.Debug().
			Str("event", "plugin_added").
			Str("plugin", ident).
			Strs("commands", entry.CommandIDs).
			Msg("hot-added wasm plugin")
	} else {
		logging.LogPluginOutcome(ident, entry.State.String(), entry.ErrorDetail)
	}

	if m.cache != nil {
		m.flushCacheLocked()
	}

	return nil
}

// UnloadPlugin removes a plugin and its command bindings. Registered
// dependents keep running; the dependency gate re-applies on their next
// reload or on the next full cycle.
func (m *Manager) UnloadPlugin(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.registry.remove(name)
	if !ok {
		return fmt.Errorf("plugin %s not present", name)
	}

	if inst != nil {
		_ = inst.close(m.ctx)
	}

	if m.cache != nil {
		m.flushCacheLocked()
	}

	log.Info().
		Str("event", "plugin_unloaded").
		Str("plugin", name).
		Msg("plugin unloaded")

	return nil
}

// decideLive gates a single plugin against the live registry, used by hot
// add and reload where the rest of the cycle has already settled.
func (m *Manager) decideLive(meta *Metadata) decision {
	if verr := CheckHostCompatibility(m.hostVersion, m.hostVersionRaw, meta); verr != nil {
		return decision{StateVersionRejected, verr.Error()}
	}

	if ok, reason := m.policy.Enabled(meta); !ok {
		return decision{StatePolicyDisabled, reason}
	}

	for _, dep := range meta.DependsOn {
		depEntry, ok := m.registry.get(dep)
		if !ok || depEntry.State != StateRegistered {
			return decision{
				StateDependencyUnmet,
				(&DependencyUnmetError{Plugin: meta.Name, Dependency: dep}).Error(),
			}
		}
	}

	return decision{StateRegistered, ""}
}

// flushCacheLocked persists the discovery cache against the paths the
// registry currently tracks. Callers hold m.mu.
func (m *Manager) flushCacheLocked() {
	entries := m.registry.Entries()
	current := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		current[e.Path] = struct{}{}
	}
	m.cache.Flush(current)
}
