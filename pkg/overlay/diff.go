// Package overlay contains the modifier-lifecycle orchestrator: given
// successive settings snapshots it decides, per modifier, whether to
// enable, update in place, or disable, and applies those transitions to
// the registered adapters.
package overlay

import (
	"reflect"

	"github.com/clearlens/overlay/pkg/modifier"
	"github.com/clearlens/overlay/pkg/settings"
)

// Transition is the classified action for one modifier in one cycle.
type Transition int

const (
	// NoOp means the modifier's effective state is unchanged.
	NoOp Transition = iota
	// Enable turns the modifier on with its current parameters. For the
	// typography slot this means a full (re-)apply.
	Enable
	// Update pushes new parameters into an already-enabled modifier.
	// Only emitted for updatable slots.
	Update
	// Disable turns the modifier off. For the typography slot this means
	// removal.
	Disable
)

// String returns the transition name for logs and metrics labels.
func (t Transition) String() string {
	switch t {
	case Enable:
		return "enable"
	case Update:
		return "update"
	case Disable:
		return "disable"
	default:
		return "noop"
	}
}

// Classify compares the previous and current snapshots and returns the
// transition for every modifier slot, typography included. prev is nil on
// the first evaluation, in which case every effectively-on modifier
// classifies as Enable, never Update.
//
// The master switch takes precedence over every per-modifier rule: a
// snapshot with Enabled=false classifies every modifier as Disable on the
// transition into that state, and NoOp while it persists, regardless of
// individual flags. A modifier that comes back after a master-off period
// classifies as Enable even if its own flag never changed; adapters are
// not assumed to retain state across a disable.
func Classify(prev *settings.Settings, cur settings.Settings) map[modifier.ID]Transition {
	transitions := make(map[modifier.ID]Transition, len(modifier.Slots())+1)

	if !cur.Enabled {
		// Master off: a full disable sweep exactly once per transition
		// into this state. First evaluation counts as a transition so
		// nothing left over from a previous page state survives.
		t := NoOp
		if prev == nil || prev.Enabled {
			t = Disable
		}
		transitions[modifier.Typography] = t
		for _, slot := range modifier.Slots() {
			transitions[slot.ID] = t
		}
		return transitions
	}

	transitions[modifier.Typography] = classifyTypography(prev, cur)
	for _, slot := range modifier.Slots() {
		transitions[slot.ID] = classifySlot(slot, prev, cur)
	}
	return transitions
}

// classifySlot applies the per-modifier rules with the master switch
// already known to be on for cur.
func classifySlot(slot modifier.Slot, prev *settings.Settings, cur settings.Settings) Transition {
	curOn := slot.Enabled(cur)
	prevOn := prev != nil && prev.Enabled && slot.Enabled(*prev)

	switch {
	case curOn && !prevOn:
		return Enable
	case !curOn && prevOn:
		return Disable
	case curOn && prevOn:
		if slot.Updatable && !reflect.DeepEqual(slot.Params(*prev), slot.Params(cur)) {
			return Update
		}
		// Toggle-only modifiers deliberately ignore parameter changes
		// while enabled; new parameters take effect on the next enable.
		return NoOp
	default:
		return NoOp
	}
}

// classifyTypography handles the always-on slot: applied in full whenever
// its parameters change (or the master switch just came on), removed only
// by the master switch.
func classifyTypography(prev *settings.Settings, cur settings.Settings) Transition {
	if prev == nil || !prev.Enabled {
		return Enable
	}
	if !reflect.DeepEqual(prev.Typography, cur.Typography) {
		return Enable
	}
	return NoOp
}
