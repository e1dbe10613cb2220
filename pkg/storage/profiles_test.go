package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearlens/overlay/pkg/settings"
)

func newTestProfileStore(t *testing.T) *ProfileStore {
	t.Helper()
	store, err := NewProfileStore(filepath.Join(t.TempDir(), "profiles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestProfileStore_SaveAndGet(t *testing.T) {
	store := newTestProfileStore(t)

	cfg := settings.Default()
	cfg.Enabled = true
	cfg.VisualAids.ReadingRuler.Enabled = true

	saved, err := store.Save("reading", cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "reading", saved.Name)
	assert.True(t, saved.Settings.VisualAids.ReadingRuler.Enabled)

	got, err := store.Get(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, cfg, got.Settings)
}

func TestProfileStore_SaveSameNameReplaces(t *testing.T) {
	store := newTestProfileStore(t)

	first, err := store.Save("night", settings.Default())
	require.NoError(t, err)

	cfg := settings.Default()
	cfg.VisualAids.ScreenTint.Enabled = true
	cfg.VisualAids.ScreenTint.Preset = "blue"
	second, err := store.Save("night", cfg)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "saving under an existing name keeps its identity")
	assert.Equal(t, "blue", second.Settings.VisualAids.ScreenTint.Preset)

	all, err := store.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestProfileStore_SaveRejectsEmptyName(t *testing.T) {
	store := newTestProfileStore(t)
	_, err := store.Save("   ", settings.Default())
	assert.Error(t, err)
}

func TestProfileStore_ListOrdersByName(t *testing.T) {
	store := newTestProfileStore(t)
	for _, name := range []string{"zen", "daylight", "morning"} {
		_, err := store.Save(name, settings.Default())
		require.NoError(t, err)
	}

	all, err := store.List()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "daylight", all[0].Name)
	assert.Equal(t, "morning", all[1].Name)
	assert.Equal(t, "zen", all[2].Name)
}

func TestProfileStore_Delete(t *testing.T) {
	store := newTestProfileStore(t)
	saved, err := store.Save("temp", settings.Default())
	require.NoError(t, err)

	require.NoError(t, store.Delete(saved.ID))
	_, err = store.Get(saved.ID)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	assert.ErrorIs(t, store.Delete(saved.ID), ErrProfileNotFound)
}

func TestProfileStore_GetMissing(t *testing.T) {
	store := newTestProfileStore(t)
	_, err := store.Get("nope")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	_, err = store.GetByName("nope")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}
