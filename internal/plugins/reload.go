package plugins

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce is the settle window for file change events. Builds write
// wasm files in bursts; only the last event in a burst triggers work.
const DefaultDebounce = 500 * time.Millisecond

// ReloadManager watches the plugin search paths and funnels settled file
// changes into the manager. Rapid successive events on one file collapse
// into a single sync via a per-file debounce timer. What the sync does is
// decided from the file's condition at fire time, not from the event that
// armed the timer: a create followed by a quick delete unloads, nothing else.
type ReloadManager struct {
	manager  *Manager
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	phases map[string]ReloadPhase

	// syncFn is what a settled change triggers; tests replace it.
	syncFn func(path string) error

	done      chan struct{}
	closeOnce sync.Once
}

// NewReloadManager builds a watcher over the given directories. A directory
// that cannot be watched is reported and skipped; plugin paths may
// legitimately not exist yet.
func NewReloadManager(m *Manager, dirs []string, debounce time.Duration) (*ReloadManager, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	watched := 0
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			log.Warn().
				Str("event", "watch_failed").
				Str("path", dir).
				Err(err).
				Msg("directory not watched")

			continue
		}
		watched++
	}

	log.Info().
		Str("event", "watch_started").
		Int("directories", watched).
		Dur("debounce", debounce).
		Msg("hot reload enabled")

	rm := &ReloadManager{
		manager:  m,
		watcher:  watcher,
		debounce: debounce,
		timers:   make(map[string]*time.Timer),
		phases:   make(map[string]ReloadPhase),
		done:     make(chan struct{}),
	}
	rm.syncFn = m.SyncPath

	return rm, nil
}

// Start runs the watch loop until ctx is cancelled or Close is called.
func (rm *ReloadManager) Start(ctx context.Context) {
	go rm.watchLoop(ctx)
}

func (rm *ReloadManager) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-rm.done:
			return
		case event, ok := <-rm.watcher.Events:
			if !ok {
				return
			}
			rm.handleEvent(event)
		case err, ok := <-rm.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Str("event", "watch_error").Err(err).Msg("file watcher error")
		}
	}
}

// handleEvent arms or re-arms the debounce timer for a conforming path.
func (rm *ReloadManager) handleEvent(event fsnotify.Event) {
	relevant := event.Op&fsnotify.Write == fsnotify.Write ||
		event.Op&fsnotify.Create == fsnotify.Create ||
		event.Op&fsnotify.Remove == fsnotify.Remove ||
		event.Op&fsnotify.Rename == fsnotify.Rename
	if !relevant {
		return
	}

	ident := IdentifierFromPath(event.Name)
	if ident == "" {
		return
	}

	log.Debug().
		Str("event", "plugin_file_event").
		Str("plugin", ident).
		Str("path", event.Name).
		Str("op", event.Op.String()).
		Msg("change detected")

	path := event.Name

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if timer, exists := rm.timers[path]; exists {
		timer.Stop()
		rm.phases[ident] = PhaseDebouncing
	} else {
		rm.phases[ident] = PhasePendingChange
	}

	rm.timers[path] = time.AfterFunc(rm.debounce, func() {
		rm.fire(ident, path)
	})
}

// fire runs once the debounce window closes with no further events.
func (rm *ReloadManager) fire(ident, path string) {
	rm.mu.Lock()
	delete(rm.timers, path)
	rm.phases[ident] = PhaseReloading
	rm.mu.Unlock()

	err := rm.syncFn(path)

	rm.mu.Lock()
	if err != nil {
		rm.phases[ident] = PhaseRolledBack
	} else {
		rm.phases[ident] = PhaseIdle
	}
	rm.mu.Unlock()

	if err != nil {
		log.Error().
			Str("event", "plugin_sync_failed").
			Str("plugin", ident).
			Str("path", path).
			Err(err).
			Msg("change not applied")
	}
}

// Phase reports where a plugin sits in the reload state machine.
func (rm *ReloadManager) Phase(name string) ReloadPhase {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	return rm.phases[name]
}

// Close stops pending timers and the watch loop, and releases the watcher.
func (rm *ReloadManager) Close() error {
	rm.mu.Lock()
	for path, timer := range rm.timers {
		timer.Stop()
		delete(rm.timers, path)
	}
	rm.mu.Unlock()

	rm.closeOnce.Do(func() { close(rm.done) })

	return rm.watcher.Close()
}
