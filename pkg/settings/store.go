package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"
)

// ErrNotInitialized is returned when reading or mutating a store that has
// not finished its initial load. Consumers treat this window as "suppress
// everything", not as a failure.
var ErrNotInitialized = errors.New("settings: store not initialized")

// ChangeHandler receives the new snapshot after every settings change.
type ChangeHandler func(Settings)

// Store persists overlay settings to a YAML file and fans out change
// notifications. Until Initialize completes the store reports Loading and
// subscribers receive nothing; this prevents applying a default snapshot
// before the real settings are known.
type Store struct {
	path string

	// writeMu serializes read-mutate-persist-commit sequences so every
	// mutation starts from the snapshot the previous one committed.
	// Always acquired before mu, never while holding it.
	writeMu sync.Mutex

	mu          sync.RWMutex
	current     Settings
	loaded      bool
	subscribers map[string]ChangeHandler
}

// NewStore creates a store backed by the given file path. The file does not
// need to exist yet; Initialize creates it with defaults.
func NewStore(path string) *Store {
	return &Store{
		path:        path,
		subscribers: make(map[string]ChangeHandler),
	}
}

// Initialize performs the initial load. If the file is missing, defaults
// are written so external editors have something to start from. Safe to
// call once; subsequent calls are no-ops.
func (s *Store) Initialize() error {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	loaded, err := s.readFile()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		loaded = Default()
		if err := s.writeFile(loaded); err != nil {
			return err
		}
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("settings: invalid file %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.current = loaded
	s.loaded = true
	handlers := s.handlersLocked()
	s.mu.Unlock()

	for _, h := range handlers {
		h(loaded)
	}
	return nil
}

// Loading reports whether the initial load is still pending.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.loaded
}

// Get returns the current snapshot. The zero value is returned while the
// store is still loading; callers gate on Loading first.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update applies mutate to a copy of the current snapshot, validates and
// persists it, and notifies subscribers with the new value. Concurrent
// mutations are serialized; each one sees its predecessor's result.
func (s *Store) Update(mutate func(*Settings)) (Settings, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return Settings{}, ErrNotInitialized
	}
	next := s.current
	s.mu.Unlock()

	if mutate != nil {
		mutate(&next)
	}
	if err := next.Validate(); err != nil {
		return Settings{}, err
	}
	if err := s.writeFile(next); err != nil {
		return Settings{}, err
	}
	return next, s.commit(next)
}

// UpdateQuiet persists a mutation without notifying subscribers. This is
// the narrow path for high-frequency parameter tweaks: the caller routes
// the change straight to the affected modifier's update check instead of
// triggering a full re-classification pass.
func (s *Store) UpdateQuiet(mutate func(*Settings)) (Settings, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return Settings{}, ErrNotInitialized
	}
	next := s.current
	s.mu.Unlock()

	if mutate != nil {
		mutate(&next)
	}
	if err := next.Validate(); err != nil {
		return Settings{}, err
	}
	if err := s.writeFile(next); err != nil {
		return Settings{}, err
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return next, nil
}

// Replace swaps in a complete snapshot, e.g. from an applied profile.
func (s *Store) Replace(next Settings) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if !loaded {
		return ErrNotInitialized
	}
	if err := next.Validate(); err != nil {
		return err
	}
	if err := s.writeFile(next); err != nil {
		return err
	}
	return s.commit(next)
}

// Subscribe registers a change handler and returns its handle.
func (s *Store) Subscribe(handler ChangeHandler) string {
	if s == nil || handler == nil {
		return ""
	}
	id := ulid.Make().String()
	s.mu.Lock()
	s.subscribers[id] = handler
	s.mu.Unlock()
	return id
}

// Unsubscribe removes a change handler by its handle.
func (s *Store) Unsubscribe(id string) {
	if s == nil || strings.TrimSpace(id) == "" {
		return
	}
	s.mu.Lock()
	delete(s.subscribers, id)
	s.mu.Unlock()
}

// Watch reloads the settings file whenever another process rewrites it,
// until ctx is cancelled. External edits flow through the same notification
// path as Update, so consumers see them as ordinary new snapshots.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings: watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors typically replace the
	// file via rename, which drops a direct file watch.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("settings: watch %s: %w", dir, err)
	}
	target := filepath.Clean(s.path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				return fmt.Errorf("settings: watch: %w", err)
			}
		}
	}
}

func (s *Store) reload() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	loaded, err := s.readFile()
	if err != nil {
		return
	}
	if err := loaded.Validate(); err != nil {
		return
	}
	_ = s.commit(loaded)
}

// commit stores the snapshot and notifies subscribers outside the lock.
func (s *Store) commit(next Settings) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotInitialized
	}
	s.current = next
	handlers := s.handlersLocked()
	s.mu.Unlock()

	for _, h := range handlers {
		h(next)
	}
	return nil
}

func (s *Store) handlersLocked() []ChangeHandler {
	out := make([]ChangeHandler, 0, len(s.subscribers))
	for _, h := range s.subscribers {
		out = append(out, h)
	}
	return out
}

func (s *Store) readFile() (Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Settings{}, err
	}
	var loaded Settings
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Settings{}, fmt.Errorf("settings: parse %s: %w", s.path, err)
	}
	return loaded, nil
}

func (s *Store) writeFile(value Settings) error {
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("settings: create directory: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("settings: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("settings: replace: %w", err)
	}
	return nil
}
