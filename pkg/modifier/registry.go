package modifier

import (
	"sync"

	"github.com/clearlens/overlay/pkg/settings"
)

// Registry binds modifier IDs to their adapters. The orchestrator only
// reaches adapters through it, so tests can install fakes without touching
// any page state.
type Registry struct {
	mu         sync.RWMutex
	typography Applier
	togglers   map[ID]Toggler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{togglers: make(map[ID]Toggler)}
}

// SetTypography installs the typography adapter.
func (r *Registry) SetTypography(a Applier) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.typography = a
	r.mu.Unlock()
}

// Register installs the adapter for a modifier slot. An Updater may be
// registered for any slot; the orchestrator only calls Update on slots
// whose capability declares it.
func (r *Registry) Register(id ID, adapter Toggler) {
	if r == nil || adapter == nil {
		return
	}
	r.mu.Lock()
	r.togglers[id] = adapter
	r.mu.Unlock()
}

// Typography returns the typography adapter, or nil if none is installed.
func (r *Registry) Typography() Applier {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.typography
}

// Toggler returns the adapter for id, or nil if none is installed.
func (r *Registry) Toggler(id ID) Toggler {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.togglers[id]
}

// Updater returns the adapter for id if it supports in-place updates.
func (r *Registry) Updater(id ID) Updater {
	if u, ok := r.Toggler(id).(Updater); ok {
		return u
	}
	return nil
}

// Funcs adapts plain functions into a Toggler, mirroring http.HandlerFunc.
// Nil members are treated as no-ops.
type Funcs struct {
	EnableFunc  func(settings.Settings) error
	UpdateFunc  func(settings.Settings) error
	DisableFunc func() error
}

func (f Funcs) Enable(cfg settings.Settings) error {
	if f.EnableFunc == nil {
		return nil
	}
	return f.EnableFunc(cfg)
}

func (f Funcs) Update(cfg settings.Settings) error {
	if f.UpdateFunc == nil {
		return nil
	}
	return f.UpdateFunc(cfg)
}

func (f Funcs) Disable() error {
	if f.DisableFunc == nil {
		return nil
	}
	return f.DisableFunc()
}
