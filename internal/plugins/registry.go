package plugins

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// RegistryEntry is the authoritative record for one plugin known to the host.
// Entries exist for rejected plugins too; only registered entries own a live
// instance and command bindings.
type RegistryEntry struct {
	Metadata    *Metadata
	Path        string
	ModTime     time.Time
	CommandIDs  []string
	State       State
	ErrorDetail string
	Generation  int

	instance *PluginInstance
}

// Registry maps plugin names to entries and command identifiers to the plugin
// serving them. All mutation happens under the write lock; the invoke path
// takes the read lock only long enough to resolve the instance pointer.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*RegistryEntry
	commands map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		entries:  make(map[string]*RegistryEntry),
		commands: make(map[string]string),
	}
}

// replaceAll installs a freshly built entry set, discarding the previous one.
// Command bindings are rebuilt from the registered entries. The superseded
// instances are returned so the caller can close them outside the lock.
func (r *Registry) replaceAll(entries map[string]*RegistryEntry) []*PluginInstance {
	commands := make(map[string]string)

	for name, entry := range entries {
		for _, id := range entry.CommandIDs {
			commands[id] = name
		}
	}

	r.mu.Lock()

	var old []*PluginInstance

	for _, entry := range r.entries {
		if entry.instance != nil {
			old = append(old, entry.instance)
		}
	}

	r.entries = entries
	r.commands = commands
	r.mu.Unlock()

	return old
}

// add inserts a new entry. Registered entries bind their command identifiers;
// a collision rejects the whole entry.
func (r *Registry) add(entry *RegistryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := entry.Metadata.Name
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("plugin %s already present", name)
	}

	if entry.State == StateRegistered {
		for _, id := range entry.CommandIDs {
			if owner, bound := r.commands[id]; bound {
				return fmt.Errorf("command %s already bound by plugin %s", id, owner)
			}
		}

		for _, id := range entry.CommandIDs {
			r.commands[id] = name
		}
	}

	r.entries[name] = entry

	return nil
}

// swapInstance atomically replaces the instance behind a registered plugin:
// old command bindings are removed, new ones installed, and the entry updated
// in one critical section. On a binding collision the old bindings are
// restored and the entry left untouched so the caller can roll back. The
// superseded instance is returned for closing outside the lock.
func (r *Registry) swapInstance(
	name string,
	inst *PluginInstance,
	meta *Metadata,
	commandIDs []string,
	path string,
	modTime time.Time,
) (*PluginInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("plugin %s not present", name)
	}

	if entry.State != StateRegistered {
		return nil, fmt.Errorf("plugin %s is %s, not registered", name, entry.State)
	}

	for _, id := range entry.CommandIDs {
		delete(r.commands, id)
	}

	for _, id := range commandIDs {
		if owner, bound := r.commands[id]; bound {
			for _, old := range entry.CommandIDs {
				r.commands[old] = name
			}

			return nil, fmt.Errorf("command %s already bound by plugin %s", id, owner)
		}
	}

	for _, id := range commandIDs {
		r.commands[id] = name
	}

	old := entry.instance
	entry.instance = inst
	entry.Metadata = meta
	entry.CommandIDs = commandIDs
	entry.Path = path
	entry.ModTime = modTime
	entry.Generation++
	entry.ErrorDetail = ""

	return old, nil
}

// remove drops an entry and its command bindings, returning the instance (nil
// for entries that never registered) for the caller to close.
func (r *Registry) remove(name string) (*PluginInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}

	for _, id := range entry.CommandIDs {
		delete(r.commands, id)
	}

	delete(r.entries, name)

	return entry.instance, true
}

// instanceFor resolves a command identifier to the owning plugin's instance.
func (r *Registry) instanceFor(commandID string) (*PluginInstance, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.commands[commandID]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownCommand, commandID)
	}

	entry := r.entries[name]
	if entry == nil || entry.instance == nil {
		return nil, name, fmt.Errorf("%w: %s", ErrUnknownCommand, commandID)
	}

	return entry.instance, name, nil
}

// get returns the live entry for a plugin name. The pointer is shared;
// callers outside this package go through Entries instead.
func (r *Registry) get(name string) (*RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]

	return entry, ok
}

// Snapshot returns a copy of a single entry.
func (r *Registry) Snapshot(name string) (RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return RegistryEntry{}, false
	}

	snap := *entry
	snap.instance = nil
	snap.Metadata = entry.Metadata.Clone()
	snap.CommandIDs = append([]string(nil), entry.CommandIDs...)

	return snap, true
}

// Entries returns a snapshot of all entries sorted by plugin name. Metadata
// and command lists are copied; instances are not exposed.
func (r *Registry) Entries() []RegistryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RegistryEntry, 0, len(r.entries))

	for _, entry := range r.entries {
		snap := *entry
		snap.instance = nil
		snap.Metadata = entry.Metadata.Clone()
		snap.CommandIDs = append([]string(nil), entry.CommandIDs...)
		out = append(out, snap)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Metadata.Name < out[j].Metadata.Name })

	return out
}
