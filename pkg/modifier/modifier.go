// Package modifier declares the identity and adapter contract of the
// overlay's accessibility modifiers. Adapters are opaque collaborators:
// the orchestration layer decides when to call them, never how they render.
package modifier

import "github.com/clearlens/overlay/pkg/settings"

// ID names one modifier slot.
type ID string

const (
	Typography       ID = "typography"
	ReadingRuler     ID = "reading_ruler"
	ScreenTint       ID = "screen_tint"
	FocusMode        ID = "focus_mode"
	HandConductor    ID = "hand_conductor"
	HandFocus        ID = "hand_focus"
	BionicReading    ID = "bionic_reading"
	SyllableSplitter ID = "syllable_splitter"
	ClickToRead      ID = "click_to_read"
)

// Toggler is the minimal adapter contract: a modifier that can be turned
// on with its current parameters and turned off. Disable must be safe to
// call on an already-disabled adapter.
type Toggler interface {
	Enable(cfg settings.Settings) error
	Disable() error
}

// Updater extends Toggler with in-place parameter updates while enabled.
// Update must not re-enable a disabled adapter.
type Updater interface {
	Toggler
	Update(cfg settings.Settings) error
}

// Applier is the typography contract. Typography has no enable flag of its
// own: it is re-applied in full on every relevant change while the master
// switch is on, and removed when the switch goes off. Apply is idempotent.
type Applier interface {
	Apply(cfg settings.Settings) error
	Remove() error
}

// Slot describes one modifier's capability and how to read its state out
// of a snapshot. Updatable is false for the toggle-only aids (bionic
// reading, syllable splitter, click-to-read): their parameter changes are
// not propagated while enabled and only take effect on the next enable.
type Slot struct {
	ID        ID
	Updatable bool

	// Enabled reports the modifier's effective flag in a snapshot,
	// ignoring the master switch (the classifier layers that on top).
	Enabled func(settings.Settings) bool

	// Params extracts the modifier's parameter sub-tree for value
	// comparison between snapshots.
	Params func(settings.Settings) any

	// Patch copies the modifier's parameter sub-tree from src into dst.
	// Only set for updatable slots; the narrow update path uses it to
	// fold a single sub-tree change into the last-applied snapshot.
	Patch func(dst *settings.Settings, src settings.Settings)
}

// Slots lists every modifier except typography, which follows the master
// switch alone and is handled as a dedicated apply/remove slot.
func Slots() []Slot {
	return []Slot{
		{
			ID:        ReadingRuler,
			Updatable: true,
			Enabled:   func(s settings.Settings) bool { return s.VisualAids.ReadingRuler.Enabled },
			Params:    func(s settings.Settings) any { return s.VisualAids.ReadingRuler },
			Patch: func(dst *settings.Settings, src settings.Settings) {
				dst.VisualAids.ReadingRuler = src.VisualAids.ReadingRuler
			},
		},
		{
			ID:        ScreenTint,
			Updatable: true,
			// Preset "none" forces the tint off even with the flag set.
			Enabled: func(s settings.Settings) bool { return s.VisualAids.ScreenTint.Active() },
			Params:  func(s settings.Settings) any { return s.VisualAids.ScreenTint },
			Patch: func(dst *settings.Settings, src settings.Settings) {
				dst.VisualAids.ScreenTint = src.VisualAids.ScreenTint
			},
		},
		{
			ID:        FocusMode,
			Updatable: true,
			Enabled:   func(s settings.Settings) bool { return s.VisualAids.FocusMode.Enabled },
			Params:    func(s settings.Settings) any { return s.VisualAids.FocusMode },
			Patch: func(dst *settings.Settings, src settings.Settings) {
				dst.VisualAids.FocusMode = src.VisualAids.FocusMode
			},
		},
		{
			ID:        HandConductor,
			Updatable: true,
			Enabled:   func(s settings.Settings) bool { return s.VisualAids.HandConductor.Enabled },
			Params:    func(s settings.Settings) any { return s.VisualAids.HandConductor },
			Patch: func(dst *settings.Settings, src settings.Settings) {
				dst.VisualAids.HandConductor = src.VisualAids.HandConductor
			},
		},
		{
			ID:        HandFocus,
			Updatable: true,
			Enabled:   func(s settings.Settings) bool { return s.VisualAids.HandFocus.Enabled },
			Params:    func(s settings.Settings) any { return s.VisualAids.HandFocus },
			Patch: func(dst *settings.Settings, src settings.Settings) {
				dst.VisualAids.HandFocus = src.VisualAids.HandFocus
			},
		},
		{
			ID:      BionicReading,
			Enabled: func(s settings.Settings) bool { return s.Cognitive.BionicReading.Enabled },
			Params:  func(s settings.Settings) any { return s.Cognitive.BionicReading },
		},
		{
			ID:      SyllableSplitter,
			Enabled: func(s settings.Settings) bool { return s.Cognitive.SyllableSplitter.Enabled },
			Params:  func(s settings.Settings) any { return s.Cognitive.SyllableSplitter },
		},
		{
			ID:      ClickToRead,
			Enabled: func(s settings.Settings) bool { return s.Audio.ClickToRead },
			Params:  func(s settings.Settings) any { return s.Audio },
		},
	}
}

// SlotFor returns the slot for id, or false if id is typography or unknown.
func SlotFor(id ID) (Slot, bool) {
	for _, slot := range Slots() {
		if slot.ID == id {
			return slot, true
		}
	}
	return Slot{}, false
}
