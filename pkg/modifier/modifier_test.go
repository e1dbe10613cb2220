package modifier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearlens/overlay/pkg/settings"
)

func TestSlots_Capabilities(t *testing.T) {
	updatable := map[ID]bool{}
	for _, slot := range Slots() {
		updatable[slot.ID] = slot.Updatable
		require.NotNil(t, slot.Enabled, "slot %s", slot.ID)
		require.NotNil(t, slot.Params, "slot %s", slot.ID)
		if slot.Updatable {
			require.NotNil(t, slot.Patch, "updatable slot %s needs a patch", slot.ID)
		} else {
			require.Nil(t, slot.Patch, "toggle-only slot %s must not patch", slot.ID)
		}
	}

	assert.True(t, updatable[ReadingRuler])
	assert.True(t, updatable[ScreenTint])
	assert.True(t, updatable[FocusMode])
	assert.True(t, updatable[HandConductor])
	assert.True(t, updatable[HandFocus])
	assert.False(t, updatable[BionicReading])
	assert.False(t, updatable[SyllableSplitter])
	assert.False(t, updatable[ClickToRead])
}

func TestSlotFor(t *testing.T) {
	slot, ok := SlotFor(ScreenTint)
	require.True(t, ok)
	assert.Equal(t, ScreenTint, slot.ID)

	_, ok = SlotFor(Typography)
	assert.False(t, ok, "typography is not a toggle slot")

	_, ok = SlotFor(ID("bogus"))
	assert.False(t, ok)
}

func TestSlotPatch(t *testing.T) {
	slot, ok := SlotFor(ReadingRuler)
	require.True(t, ok)

	src := settings.Default()
	src.VisualAids.ReadingRuler.Height = 99
	dst := settings.Default()

	slot.Patch(&dst, src)
	assert.Equal(t, 99, dst.VisualAids.ReadingRuler.Height)
	assert.Equal(t, settings.Default().VisualAids.ScreenTint, dst.VisualAids.ScreenTint,
		"patch touches only its own sub-tree")
}

func TestRegistry_UpdaterTypeAssertion(t *testing.T) {
	r := NewRegistry()
	r.Register(ReadingRuler, Funcs{
		UpdateFunc: func(settings.Settings) error { return errors.New("called") },
	})

	u := r.Updater(ReadingRuler)
	require.NotNil(t, u)
	assert.EqualError(t, u.Update(settings.Default()), "called")

	assert.Nil(t, r.Updater(ID("missing")))
	assert.Nil(t, r.Toggler(ID("missing")))
}

func TestRegistry_NilReceiver(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.Register(ReadingRuler, Funcs{})
		r.SetTypography(nil)
		_ = r.Toggler(ReadingRuler)
		_ = r.Typography()
	})
}

func TestFuncs_NilMembersAreNoOps(t *testing.T) {
	f := Funcs{}
	assert.NoError(t, f.Enable(settings.Default()))
	assert.NoError(t, f.Update(settings.Default()))
	assert.NoError(t, f.Disable())
}
