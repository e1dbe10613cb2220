package overlay

import (
	"fmt"
	"sync"

	"github.com/clearlens/overlay/pkg/logging"
	"github.com/clearlens/overlay/pkg/modifier"
	"github.com/clearlens/overlay/pkg/settings"
)

// SettingsSource is the slice of the settings store the controller needs:
// the loading gate and the current snapshot. *settings.Store satisfies it.
type SettingsSource interface {
	Loading() bool
	Get() settings.Settings
}

// Controller applies classified transitions to the registered adapters.
// It holds the previous snapshot for diffing, serializes cycles, and
// guarantees a defensive teardown sweep on Close.
//
// Adapter failures are isolated per modifier: a call that returns an error
// or panics is logged and counted, and the remaining transitions in the
// cycle are still applied.
type Controller struct {
	registry *modifier.Registry
	source   SettingsSource
	logger   *logging.Logger

	mu          sync.Mutex
	lastApplied *settings.Settings
	teardowns   []func()
	closed      bool

	closeOnce sync.Once
}

// NewController creates a controller over the given adapter registry and
// settings source. logger may be nil.
func NewController(registry *modifier.Registry, source SettingsSource, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Controller{
		registry: registry,
		source:   source,
		logger:   logger,
	}
}

// AddTeardown registers a function to run during Close, after the adapter
// sweep. Bridges register their detach here so listeners are released even
// if no final "disabled" snapshot is ever observed.
func (c *Controller) AddTeardown(fn func()) {
	if c == nil || fn == nil {
		return
	}
	c.mu.Lock()
	c.teardowns = append(c.teardowns, fn)
	c.mu.Unlock()
}

// OnSettings runs one orchestration cycle against the new snapshot. It is
// the handler to register with the settings store's subscription. While
// the store has not finished its initial load the cycle is suppressed
// entirely; no adapter sees a default snapshot.
func (c *Controller) OnSettings(cur settings.Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.source != nil && c.source.Loading() {
		recordSkippedCycle()
		return
	}

	transitions := Classify(c.lastApplied, cur)
	c.applyLocked(transitions, cur)

	snapshot := cur
	c.lastApplied = &snapshot
}

// RefreshParams re-runs only the Update check for one updatable modifier.
// This is the narrow path for high-frequency parameter tweaks (slider
// drags): it skips the full classification pass and never enables or
// disables anything.
func (c *Controller) RefreshParams(id modifier.ID) {
	slot, ok := modifier.SlotFor(id)
	if !ok || !slot.Updatable {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.source == nil || c.source.Loading() || c.lastApplied == nil {
		return
	}
	cur := c.source.Get()
	if classifySlot(slot, c.lastApplied, cur) != Update {
		return
	}

	if adapter := c.registry.Updater(id); adapter != nil {
		c.invoke(id, Update, func() error { return adapter.Update(cur) })
		recordTransition(string(id), Update)
	}
	slot.Patch(c.lastApplied, cur)
}

// Close performs the defensive teardown sweep: every modifier with a
// disable/remove operation is disabled exactly once, regardless of the
// last-known configuration, and registered teardowns (bridge detaches)
// run afterwards. Safe to call more than once.
func (c *Controller) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.closed = true

		if adapter := c.registry.Typography(); adapter != nil {
			c.invoke(modifier.Typography, Disable, adapter.Remove)
		}
		for _, slot := range modifier.Slots() {
			if adapter := c.registry.Toggler(slot.ID); adapter != nil {
				c.invoke(slot.ID, Disable, adapter.Disable)
			}
		}
		for _, fn := range c.teardowns {
			fn()
		}
		c.teardowns = nil
		c.lastApplied = nil
	})
}

// applyLocked invokes adapters for every non-NoOp transition. The
// disable/remove sweep runs first so that a master-switch-off cycle never
// leaves a modifier enabled, and so disables never race enables within the
// same cycle. Independent modifiers have no ordering guarantee beyond that.
func (c *Controller) applyLocked(transitions map[modifier.ID]Transition, cur settings.Settings) {
	if transitions[modifier.Typography] == Disable {
		if adapter := c.registry.Typography(); adapter != nil {
			c.invoke(modifier.Typography, Disable, adapter.Remove)
			recordTransition(string(modifier.Typography), Disable)
		}
	}
	for _, slot := range modifier.Slots() {
		if transitions[slot.ID] != Disable {
			continue
		}
		if adapter := c.registry.Toggler(slot.ID); adapter != nil {
			c.invoke(slot.ID, Disable, adapter.Disable)
			recordTransition(string(slot.ID), Disable)
		}
	}

	if transitions[modifier.Typography] == Enable {
		if adapter := c.registry.Typography(); adapter != nil {
			c.invoke(modifier.Typography, Enable, func() error { return adapter.Apply(cur) })
			recordTransition(string(modifier.Typography), Enable)
		}
	}
	for _, slot := range modifier.Slots() {
		switch transitions[slot.ID] {
		case Enable:
			if adapter := c.registry.Toggler(slot.ID); adapter != nil {
				c.invoke(slot.ID, Enable, func() error { return adapter.Enable(cur) })
				recordTransition(string(slot.ID), Enable)
			}
		case Update:
			if adapter := c.registry.Updater(slot.ID); adapter != nil {
				c.invoke(slot.ID, Update, func() error { return adapter.Update(cur) })
				recordTransition(string(slot.ID), Update)
			}
		}
	}
}

// invoke runs one adapter call with failure isolation.
func (c *Controller) invoke(id modifier.ID, t Transition, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			recordAdapterFailure(string(id))
			c.logger.Error(logging.CategoryModifier, "adapter_panic",
				fmt.Sprintf("adapter %s panicked during %s", id, t),
				map[string]any{"panic": fmt.Sprint(r)})
		}
	}()
	if err := fn(); err != nil {
		recordAdapterFailure(string(id))
		c.logger.Error(logging.CategoryModifier, "adapter_error",
			fmt.Sprintf("adapter %s failed during %s", id, t),
			map[string]any{"error": err.Error()})
		return
	}
	c.logger.Debug(logging.CategoryModifier, "transition_applied", "", map[string]any{
		"modifier":   string(id),
		"transition": t.String(),
	})
}
