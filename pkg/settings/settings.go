// Package settings defines the overlay configuration snapshot and its
// persistent store. A Settings value is immutable by convention: every
// change produces a new value, and consumers diff successive snapshots
// rather than observing mutation.
package settings

import (
	"fmt"
	"strings"
)

// TintPresetNone marks a screen tint that is configured but inert.
// A tint with this preset is treated as disabled even when its flag is on.
const TintPresetNone = "none"

// Default parameter values applied when a settings file is absent or partial.
const (
	DefaultFontScale      = 1.0
	DefaultLineHeight     = 1.5
	DefaultRulerHeight    = 32
	DefaultRulerOpacity   = 0.35
	DefaultTintIntensity  = 0.25
	DefaultFocusOpacity   = 0.6
	DefaultFocusWindow    = 120
	DefaultSensitivity    = 1.0
	DefaultBionicStrength = 0.5
	DefaultSyllableMark   = "·"
	DefaultSpeechRate     = 1.0
	DefaultSpeechPitch    = 1.0
)

// Settings is the complete overlay configuration snapshot.
// Enabled is the master switch: when false every modifier must be off
// regardless of its own flag.
type Settings struct {
	Enabled    bool               `yaml:"enabled" json:"enabled"`
	Typography TypographySettings `yaml:"typography" json:"typography"`
	VisualAids VisualAidSettings  `yaml:"visual_aids" json:"visualAids"`
	Cognitive  CognitiveSettings  `yaml:"cognitive" json:"cognitive"`
	Audio      AudioSettings      `yaml:"audio" json:"audio"`
}

// TypographySettings carries the always-applied text adjustments.
// Typography has no enable flag of its own; it follows the master switch.
type TypographySettings struct {
	FontFamily    string  `yaml:"font_family" json:"fontFamily"`
	FontScale     float64 `yaml:"font_scale" json:"fontScale"`
	LetterSpacing float64 `yaml:"letter_spacing" json:"letterSpacing"`
	WordSpacing   float64 `yaml:"word_spacing" json:"wordSpacing"`
	LineHeight    float64 `yaml:"line_height" json:"lineHeight"`
}

// VisualAidSettings groups the five visual aid modifiers.
type VisualAidSettings struct {
	ReadingRuler  RulerSettings         `yaml:"reading_ruler" json:"readingRuler"`
	ScreenTint    TintSettings          `yaml:"screen_tint" json:"screenTint"`
	FocusMode     FocusSettings         `yaml:"focus_mode" json:"focusMode"`
	HandConductor HandConductorSettings `yaml:"hand_conductor" json:"handConductor"`
	HandFocus     HandFocusSettings     `yaml:"hand_focus" json:"handFocus"`
}

// RulerSettings configures the reading ruler bar.
type RulerSettings struct {
	Enabled bool    `yaml:"enabled" json:"enabled"`
	Height  int     `yaml:"height" json:"height"`
	Color   string  `yaml:"color" json:"color"`
	Opacity float64 `yaml:"opacity" json:"opacity"`
}

// TintSettings configures the full-screen tint. Preset selects a named
// color scheme; TintPresetNone leaves the tint configured but inactive.
type TintSettings struct {
	Enabled   bool    `yaml:"enabled" json:"enabled"`
	Preset    string  `yaml:"preset" json:"preset"`
	Intensity float64 `yaml:"intensity" json:"intensity"`
}

// Active reports whether the tint should actually be shown.
func (t TintSettings) Active() bool {
	return t.Enabled && !strings.EqualFold(strings.TrimSpace(t.Preset), TintPresetNone) && t.Preset != ""
}

// FocusSettings configures the focus mask that dims everything outside
// a horizontal reading window.
type FocusSettings struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	MaskOpacity  float64 `yaml:"mask_opacity" json:"maskOpacity"`
	WindowHeight int     `yaml:"window_height" json:"windowHeight"`
}

// HandConductorSettings configures gesture-driven scrolling.
type HandConductorSettings struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	Sensitivity float64 `yaml:"sensitivity" json:"sensitivity"`
}

// HandFocusSettings configures hand-tracked focus highlighting.
type HandFocusSettings struct {
	Enabled   bool    `yaml:"enabled" json:"enabled"`
	Smoothing float64 `yaml:"smoothing" json:"smoothing"`
}

// CognitiveSettings groups the toggle-only reading aids.
type CognitiveSettings struct {
	BionicReading    BionicSettings   `yaml:"bionic_reading" json:"bionicReading"`
	SyllableSplitter SyllableSettings `yaml:"syllable_splitter" json:"syllableSplitter"`
}

// BionicSettings configures bionic-reading emphasis. Strength changes take
// effect on the next enable; there is no live update path for this aid.
type BionicSettings struct {
	Enabled  bool    `yaml:"enabled" json:"enabled"`
	Strength float64 `yaml:"strength" json:"strength"`
}

// SyllableSettings configures syllable splitting. Separator changes take
// effect on the next enable; there is no live update path for this aid.
type SyllableSettings struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Separator string `yaml:"separator" json:"separator"`
}

// AudioSettings configures click-to-read speech.
type AudioSettings struct {
	ClickToRead bool    `yaml:"click_to_read" json:"clickToRead"`
	Rate        float64 `yaml:"rate" json:"rate"`
	Pitch       float64 `yaml:"pitch" json:"pitch"`
	Voice       string  `yaml:"voice" json:"voice"`
}

// Default returns the settings used before any file has been saved.
// The overlay starts disabled; nothing is applied until the user opts in.
func Default() Settings {
	return Settings{
		Enabled: false,
		Typography: TypographySettings{
			FontScale:  DefaultFontScale,
			LineHeight: DefaultLineHeight,
		},
		VisualAids: VisualAidSettings{
			ReadingRuler: RulerSettings{
				Height:  DefaultRulerHeight,
				Color:   "#ffd54f",
				Opacity: DefaultRulerOpacity,
			},
			ScreenTint: TintSettings{
				Preset:    TintPresetNone,
				Intensity: DefaultTintIntensity,
			},
			FocusMode: FocusSettings{
				MaskOpacity:  DefaultFocusOpacity,
				WindowHeight: DefaultFocusWindow,
			},
			HandConductor: HandConductorSettings{
				Sensitivity: DefaultSensitivity,
			},
			HandFocus: HandFocusSettings{
				Smoothing: 0.5,
			},
		},
		Cognitive: CognitiveSettings{
			BionicReading:    BionicSettings{Strength: DefaultBionicStrength},
			SyllableSplitter: SyllableSettings{Separator: DefaultSyllableMark},
		},
		Audio: AudioSettings{
			Rate:  DefaultSpeechRate,
			Pitch: DefaultSpeechPitch,
		},
	}
}

// Validate checks parameter ranges and fills obviously broken values back
// to defaults. It returns an error only for values that cannot be repaired.
func (s *Settings) Validate() error {
	if s.Typography.FontScale <= 0 {
		s.Typography.FontScale = DefaultFontScale
	}
	if s.Typography.LineHeight <= 0 {
		s.Typography.LineHeight = DefaultLineHeight
	}
	if s.VisualAids.ReadingRuler.Height <= 0 {
		s.VisualAids.ReadingRuler.Height = DefaultRulerHeight
	}
	if o := s.VisualAids.ReadingRuler.Opacity; o < 0 || o > 1 {
		return fmt.Errorf("reading ruler opacity %v out of range [0,1]", o)
	}
	if o := s.VisualAids.FocusMode.MaskOpacity; o < 0 || o > 1 {
		return fmt.Errorf("focus mask opacity %v out of range [0,1]", o)
	}
	if i := s.VisualAids.ScreenTint.Intensity; i < 0 || i > 1 {
		return fmt.Errorf("screen tint intensity %v out of range [0,1]", i)
	}
	if s.VisualAids.ScreenTint.Preset == "" {
		s.VisualAids.ScreenTint.Preset = TintPresetNone
	}
	if s.VisualAids.HandConductor.Sensitivity <= 0 {
		s.VisualAids.HandConductor.Sensitivity = DefaultSensitivity
	}
	if s.Cognitive.SyllableSplitter.Separator == "" {
		s.Cognitive.SyllableSplitter.Separator = DefaultSyllableMark
	}
	if s.Audio.Rate <= 0 {
		s.Audio.Rate = DefaultSpeechRate
	}
	if s.Audio.Pitch <= 0 {
		s.Audio.Pitch = DefaultSpeechPitch
	}
	return nil
}
