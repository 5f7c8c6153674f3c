// Package workspace tracks the active workspace root and notifies
// subscribers when it changes.
package workspace

import (
	"path/filepath"
	"sync"

	"partybox/pkg/logging"
)

// Snapshot is an immutable view of the active workspace context.
// Present is false when no workspace is open; Root and Name are empty then.
type Snapshot struct {
	Root    string
	Name    string
	Present bool
}

// Observer is called whenever the active workspace changes.
type Observer func(Snapshot)

// Subscription represents an active workspace-change subscription.
type Subscription struct {
	id     uint64
	source *Source
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.source != nil {
		s.source.unsubscribe(s.id)
	}
}

// Dispose makes Subscription usable as a host disposable.
func (s *Subscription) Dispose() error {
	s.Unsubscribe()
	return nil
}

// Source produces workspace snapshots and emits change notifications.
type Source struct {
	mu        sync.RWMutex
	current   Snapshot
	observers map[uint64]Observer
	nextID    uint64
	disposed  bool
}

// NewSource creates a workspace source. An empty root means no workspace
// is open.
func NewSource(root string) *Source {
	return &Source{
		current:   snapshotFor(root),
		observers: make(map[uint64]Observer),
	}
}

func snapshotFor(root string) Snapshot {
	if root == "" {
		return Snapshot{}
	}
	return Snapshot{
		Root:    root,
		Name:    filepath.Base(root),
		Present: true,
	}
}

// Current returns the current workspace snapshot.
func (s *Source) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SetRoot replaces the active workspace and notifies observers.
// An empty root transitions to the "no workspace" state.
func (s *Source) SetRoot(root string) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	snap := snapshotFor(root)
	s.current = snap
	observers := make([]Observer, 0, len(s.observers))
	for _, obs := range s.observers {
		observers = append(observers, obs)
	}
	s.mu.Unlock()

	logging.Debug("Workspace", "Workspace changed to %q (present=%v)", snap.Root, snap.Present)

	// Observers run outside the lock so they can call back into the source.
	for _, obs := range observers {
		obs(snap)
	}
}

// OnChange registers an observer for workspace changes.
func (s *Source) OnChange(obs Observer) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return &Subscription{}
	}
	s.nextID++
	id := s.nextID
	s.observers[id] = obs
	return &Subscription{id: id, source: s}
}

func (s *Source) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.observers, id)
}

// Dispose drops all observers. Safe to call more than once.
func (s *Source) Dispose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil
	}
	s.disposed = true
	s.observers = make(map[uint64]Observer)
	return nil
}
