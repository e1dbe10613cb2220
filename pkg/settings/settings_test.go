package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_StartsDisabled(t *testing.T) {
	s := Default()
	assert.False(t, s.Enabled)
	assert.False(t, s.VisualAids.ReadingRuler.Enabled)
	assert.Equal(t, TintPresetNone, s.VisualAids.ScreenTint.Preset)
	assert.Equal(t, DefaultFontScale, s.Typography.FontScale)
	assert.Equal(t, DefaultSyllableMark, s.Cognitive.SyllableSplitter.Separator)
}

func TestValidate_RepairsBrokenValues(t *testing.T) {
	s := Default()
	s.Typography.FontScale = 0
	s.Typography.LineHeight = -1
	s.VisualAids.ReadingRuler.Height = 0
	s.VisualAids.ScreenTint.Preset = ""
	s.VisualAids.HandConductor.Sensitivity = 0
	s.Cognitive.SyllableSplitter.Separator = ""
	s.Audio.Rate = 0
	s.Audio.Pitch = -0.5

	require.NoError(t, s.Validate())
	assert.Equal(t, DefaultFontScale, s.Typography.FontScale)
	assert.Equal(t, DefaultLineHeight, s.Typography.LineHeight)
	assert.Equal(t, DefaultRulerHeight, s.VisualAids.ReadingRuler.Height)
	assert.Equal(t, TintPresetNone, s.VisualAids.ScreenTint.Preset)
	assert.Equal(t, DefaultSensitivity, s.VisualAids.HandConductor.Sensitivity)
	assert.Equal(t, DefaultSyllableMark, s.Cognitive.SyllableSplitter.Separator)
	assert.Equal(t, DefaultSpeechRate, s.Audio.Rate)
	assert.Equal(t, DefaultSpeechPitch, s.Audio.Pitch)
}

func TestValidate_RejectsOutOfRangeOpacity(t *testing.T) {
	s := Default()
	s.VisualAids.ReadingRuler.Opacity = 1.5
	assert.Error(t, s.Validate())

	s = Default()
	s.VisualAids.FocusMode.MaskOpacity = -0.1
	assert.Error(t, s.Validate())

	s = Default()
	s.VisualAids.ScreenTint.Intensity = 2
	assert.Error(t, s.Validate())
}

func TestTintActive(t *testing.T) {
	tint := TintSettings{Enabled: true, Preset: "sepia"}
	assert.True(t, tint.Active())

	tint.Preset = TintPresetNone
	assert.False(t, tint.Active(), "preset none keeps the tint inert")

	tint.Preset = " NONE "
	assert.False(t, tint.Active())

	tint.Preset = ""
	assert.False(t, tint.Active())

	tint = TintSettings{Enabled: false, Preset: "sepia"}
	assert.False(t, tint.Active())
}
