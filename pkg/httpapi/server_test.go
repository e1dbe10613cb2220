package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearlens/overlay/pkg/bridge"
	"github.com/clearlens/overlay/pkg/bus"
	"github.com/clearlens/overlay/pkg/modifier"
	"github.com/clearlens/overlay/pkg/overlay"
	"github.com/clearlens/overlay/pkg/settings"
	"github.com/clearlens/overlay/pkg/storage"
)

type apiFixture struct {
	router  http.Handler
	store   *settings.Store
	panel   *overlay.Panel
	hub     *Hub
	updates *opCounter
}

type nopApplier struct{}

func (nopApplier) Apply(settings.Settings) error { return nil }
func (nopApplier) Remove() error                 { return nil }

type opCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *opCounter) bump(key string) {
	c.mu.Lock()
	c.counts[key]++
	c.mu.Unlock()
}

func (c *opCounter) get(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key]
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	dir := t.TempDir()

	counter := &opCounter{counts: make(map[string]int)}
	registry := modifier.NewRegistry()
	registry.SetTypography(nopApplier{})
	for _, slot := range modifier.Slots() {
		id := slot.ID
		registry.Register(id, modifier.Funcs{
			EnableFunc:  func(settings.Settings) error { counter.bump(string(id) + "/enable"); return nil },
			UpdateFunc:  func(settings.Settings) error { counter.bump(string(id) + "/update"); return nil },
			DisableFunc: func() error { counter.bump(string(id) + "/disable"); return nil },
		})
	}

	store := settings.NewStore(filepath.Join(dir, "settings.yaml"))
	controller := overlay.NewController(registry, store, nil)
	t.Cleanup(controller.Close)
	store.Subscribe(controller.OnSettings)
	store.Subscribe(func(settings.Settings) { counter.bump("notify") })
	require.NoError(t, store.Initialize())

	eventBus := bus.NewMemoryBus()
	t.Cleanup(func() { eventBus.Close() })
	panel := overlay.NewPanel()
	message := bridge.NewMessageBridge(eventBus, panel, nil)
	require.NoError(t, message.Attach(context.Background()))
	t.Cleanup(message.Close)

	profiles, err := storage.NewProfileStore(filepath.Join(dir, "profiles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { profiles.Close() })

	hub := NewHub()
	t.Cleanup(hub.Close)
	server := NewServer(store, controller, panel, profiles, eventBus, hub, nil)
	return &apiFixture{
		router:  server.Router(),
		store:   store,
		panel:   panel,
		hub:     hub,
		updates: counter,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &value))
	return value
}

func TestServer_Healthz(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_GetSettings(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[settings.Settings](t, rec)
	assert.Equal(t, settings.Default(), got)
}

func TestServer_PutSettingsDrivesCycle(t *testing.T) {
	f := newAPIFixture(t)

	next := settings.Default()
	next.Enabled = true
	next.VisualAids.ReadingRuler.Enabled = true
	rec := f.do(t, http.MethodPut, "/api/settings", next)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, f.updates.get("reading_ruler/enable"))
	assert.True(t, f.store.Get().Enabled)
}

func TestServer_PutSettingsRejectsGarbage(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewReader([]byte("nope")))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_PatchModifierQuietPath(t *testing.T) {
	f := newAPIFixture(t)

	next := settings.Default()
	next.Enabled = true
	next.VisualAids.ReadingRuler.Enabled = true
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/api/settings", next).Code)
	notifies := f.updates.get("notify")

	params := next.VisualAids.ReadingRuler
	params.Height = 64
	rec := f.do(t, http.MethodPatch, "/api/settings/modifiers/reading_ruler", params)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeBody[settings.RulerSettings](t, rec)
	assert.Equal(t, 64, got.Height)
	assert.Equal(t, 1, f.updates.get("reading_ruler/update"), "a parameter tweak takes the narrow path")
	assert.Equal(t, notifies, f.updates.get("notify"), "the quiet path bypasses change notifications")
	assert.Equal(t, 1, f.updates.get("reading_ruler/enable"), "no re-enable on parameter tweaks")
}

func TestServer_PatchModifierFlagFlipGoesLoud(t *testing.T) {
	f := newAPIFixture(t)

	next := settings.Default()
	next.Enabled = true
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/api/settings", next).Code)
	notifies := f.updates.get("notify")

	params := next.VisualAids.ReadingRuler
	params.Enabled = true
	rec := f.do(t, http.MethodPatch, "/api/settings/modifiers/reading_ruler", params)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, notifies+1, f.updates.get("notify"), "a flag flip is a lifecycle change")
	assert.Equal(t, 1, f.updates.get("reading_ruler/enable"))
	assert.Equal(t, 0, f.updates.get("reading_ruler/update"))
}

func TestServer_PatchModifierUnknown(t *testing.T) {
	f := newAPIFixture(t)
	assert.Equal(t, http.StatusNotFound,
		f.do(t, http.MethodPatch, "/api/settings/modifiers/nonsense", map[string]any{}).Code)
	// Toggle-only aids have no live parameter path.
	assert.Equal(t, http.StatusNotFound,
		f.do(t, http.MethodPatch, "/api/settings/modifiers/bionic_reading", map[string]any{}).Code)
}

func TestServer_PanelEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/panel/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[overlay.UIState](t, rec).PanelOpen)

	rec = f.do(t, http.MethodPost, "/api/panel/close", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[overlay.UIState](t, rec).PanelOpen)

	f.panel.SetSummary("stale")
	rec = f.do(t, http.MethodDelete, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[overlay.UIState](t, rec).Summary)
}

func TestServer_SummarizeFlowsThroughBus(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/summarize", map[string]string{"text": "short version"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		return f.panel.State().Summary == "short version"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_SummarizeRequiresText(t *testing.T) {
	f := newAPIFixture(t)
	assert.Equal(t, http.StatusBadRequest,
		f.do(t, http.MethodPost, "/api/summarize", map[string]string{"text": "  "}).Code)
}

func TestServer_ProfileLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	// Save the current settings under a name.
	next := settings.Default()
	next.Enabled = true
	next.Cognitive.BionicReading.Enabled = true
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/api/settings", next).Code)

	rec := f.do(t, http.MethodPost, "/api/profiles", map[string]string{"name": "focus"})
	require.Equal(t, http.StatusCreated, rec.Code)
	saved := decodeBody[storage.Profile](t, rec)
	assert.True(t, saved.Settings.Cognitive.BionicReading.Enabled)

	rec = f.do(t, http.MethodGet, "/api/profiles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]storage.Profile](t, rec), 1)

	// Change settings, then apply the profile to roll back.
	plain := settings.Default()
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/api/settings", plain).Code)
	require.False(t, f.store.Get().Enabled)

	rec = f.do(t, http.MethodPost, "/api/profiles/"+saved.ID+"/apply", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.store.Get().Cognitive.BionicReading.Enabled)

	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/profiles/"+saved.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/profiles/"+saved.ID, nil).Code)
}

func TestServer_ApplyMissingProfile(t *testing.T) {
	f := newAPIFixture(t)
	assert.Equal(t, http.StatusNotFound,
		f.do(t, http.MethodPost, "/api/profiles/unknown/apply", nil).Code)
}

func TestServer_SaveProfileRequiresName(t *testing.T) {
	f := newAPIFixture(t)
	assert.Equal(t, http.StatusBadRequest,
		f.do(t, http.MethodPost, "/api/profiles", map[string]string{"name": ""}).Code)
}
