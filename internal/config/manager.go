package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"partybox/pkg/logging"
)

// Observer is called when a configuration change event is delivered.
type Observer func(Event)

// Subscription represents an active configuration-change subscription.
type Subscription struct {
	id      uint64
	manager *Manager
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.manager != nil {
		s.manager.unsubscribe(s.id)
	}
}

// Dispose makes Subscription usable as a host disposable.
func (s *Subscription) Dispose() error {
	s.Unsubscribe()
	return nil
}

const watchDebounce = 200 * time.Millisecond

// Manager owns the current configuration snapshot. It reloads the
// snapshot on demand, watches the configuration files for edits, and
// delivers namespace-tagged change events to observers.
type Manager struct {
	mu            sync.RWMutex
	current       Snapshot
	workspaceRoot string
	observers     map[uint64]Observer
	nextID        uint64
	disposed      bool

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewManager loads the initial snapshot for the given workspace root and
// starts watching the configuration files. workspaceRoot may be empty.
func NewManager(workspaceRoot string) (*Manager, error) {
	snap, err := Load(workspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	m := &Manager{
		current:       snap,
		workspaceRoot: workspaceRoot,
		observers:     make(map[uint64]Observer),
		done:          make(chan struct{}),
	}

	if err := m.startWatching(); err != nil {
		// File watching is best-effort; manual Reload still works.
		logging.Warn("Config", "Configuration file watching unavailable: %v", err)
	}

	return m, nil
}

// Snapshot returns the current configuration snapshot.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Reload re-reads the layered configuration files and swaps the current
// snapshot. The old snapshot is discarded wholesale.
func (m *Manager) Reload() (Snapshot, error) {
	m.mu.RLock()
	root := m.workspaceRoot
	m.mu.RUnlock()

	snap, err := Load(root)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to reload configuration: %w", err)
	}

	m.mu.Lock()
	m.current = snap
	m.mu.Unlock()

	logging.Debug("Config", "Configuration reloaded (backend=%s, transport=%s)", snap.Backend.Endpoint, snap.Protocol.Transport)
	return snap, nil
}

// OnChange registers an observer for configuration change events.
func (m *Manager) OnChange(obs Observer) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return &Subscription{}
	}
	m.nextID++
	id := m.nextID
	m.observers[id] = obs
	return &Subscription{id: id, manager: m}
}

func (m *Manager) unsubscribe(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.observers, id)
}

// Emit delivers a change event to all observers. The file watcher calls
// this with this extension's namespace; hosts that multiplex config
// events for several extensions call it with whatever namespace changed.
func (m *Manager) Emit(ev Event) {
	m.mu.RLock()
	if m.disposed {
		m.mu.RUnlock()
		return
	}
	observers := make([]Observer, 0, len(m.observers))
	for _, obs := range m.observers {
		observers = append(observers, obs)
	}
	m.mu.RUnlock()

	for _, obs := range observers {
		obs(ev)
	}
}

// startWatching wires an fsnotify watcher to the directories holding the
// user and workspace configuration files. Watching directories rather
// than files survives the rename-on-save pattern editors use.
func (m *Manager) startWatching() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	var watched int
	if userPath, err := UserConfigPath(); err == nil {
		if err := watcher.Add(filepath.Dir(userPath)); err == nil {
			watched++
		}
	}
	if m.workspaceRoot != "" {
		wsDir := filepath.Dir(WorkspaceConfigPath(m.workspaceRoot))
		if err := watcher.Add(wsDir); err == nil {
			watched++
		}
	}
	if watched == 0 {
		watcher.Close()
		return fmt.Errorf("no configuration directories exist yet")
	}

	m.watcher = watcher
	m.wg.Add(1)
	go m.watchLoop(watcher)
	return nil
}

func (m *Manager) watchLoop(watcher *fsnotify.Watcher) {
	defer m.wg.Done()

	var debounce *time.Timer
	for {
		select {
		case <-m.done:
			if debounce != nil {
				debounce.Stop()
			}
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != configFileName {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			// Editors fire several events per save; coalesce them.
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				m.Emit(Event{Namespace: Namespace})
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("Config", "Configuration watcher error: %v", err)
		}
	}
}

// Dispose stops the file watcher and drops all observers. Safe to call
// more than once.
func (m *Manager) Dispose() error {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return nil
	}
	m.disposed = true
	m.observers = make(map[uint64]Observer)
	watcher := m.watcher
	m.watcher = nil
	m.mu.Unlock()

	close(m.done)
	if watcher != nil {
		if err := watcher.Close(); err != nil {
			return fmt.Errorf("failed to close configuration watcher: %w", err)
		}
	}
	m.wg.Wait()
	return nil
}
