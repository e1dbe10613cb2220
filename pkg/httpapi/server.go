// Package httpapi exposes the overlay's local control surface: settings
// CRUD, the narrow per-modifier parameter path, panel actions, profile
// management, a websocket stream of transient UI state, and metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clearlens/overlay/pkg/bridge"
	"github.com/clearlens/overlay/pkg/bus"
	"github.com/clearlens/overlay/pkg/logging"
	"github.com/clearlens/overlay/pkg/modifier"
	"github.com/clearlens/overlay/pkg/overlay"
	"github.com/clearlens/overlay/pkg/settings"
	"github.com/clearlens/overlay/pkg/storage"
)

// Server wires the control surface over the orchestration components.
type Server struct {
	store      *settings.Store
	controller *overlay.Controller
	panel      *overlay.Panel
	profiles   *storage.ProfileStore
	events     bus.EventBus
	hub        *Hub
	logger     *logging.Logger

	upgrader websocket.Upgrader
}

// NewServer creates the control surface. profiles may be nil when profile
// storage is disabled; logger may be nil.
func NewServer(
	store *settings.Store,
	controller *overlay.Controller,
	panel *overlay.Panel,
	profiles *storage.ProfileStore,
	events bus.EventBus,
	hub *Hub,
	logger *logging.Logger,
) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Server{
		store:      store,
		controller: controller,
		panel:      panel,
		profiles:   profiles,
		events:     events,
		hub:        hub,
		logger:     logger,
		upgrader: websocket.Upgrader{
			// Local control surface only; same-origin enforcement is the
			// listener bind address (loopback), not the Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router builds the chi router for the control surface.
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()

	router.Get("/healthz", s.handleHealthz)
	router.Get("/metrics", promhttp.Handler().ServeHTTP)
	router.Get("/ws", s.handleWebsocket)

	router.Route("/api", func(r chi.Router) {
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
		r.Patch("/settings/modifiers/{id}", s.handlePatchModifier)

		r.Get("/state", s.handleGetState)
		r.Post("/panel/toggle", s.handlePanelToggle)
		r.Post("/panel/close", s.handlePanelClose)
		r.Delete("/summary", s.handleClearSummary)

		r.Post("/summarize", s.handleSummarize)

		if s.profiles != nil {
			r.Route("/profiles", func(r chi.Router) {
				r.Get("/", s.handleListProfiles)
				r.Post("/", s.handleSaveProfile)
				r.Post("/{id}/apply", s.handleApplyProfile)
				r.Delete("/{id}", s.handleDeleteProfile)
			})
		}
	})

	return router
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if s.store.Loading() {
		writeError(w, http.StatusServiceUnavailable, "settings still loading")
		return
	}
	writeJSON(w, http.StatusOK, s.store.Get())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var next settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid settings: %v", err))
		return
	}
	if err := s.store.Replace(next); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, settings.ErrNotInitialized) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.store.Get())
}

// handlePatchModifier is the narrow parameter path: it persists one
// updatable modifier's sub-tree and routes the change straight to that
// modifier's update check, skipping the full classification pass. Meant
// for high-frequency tweaks like slider drags.
func (s *Server) handlePatchModifier(w http.ResponseWriter, r *http.Request) {
	id := modifier.ID(strings.TrimSpace(chi.URLParam(r, "id")))
	slot, ok := modifier.SlotFor(id)
	if !ok || !slot.Updatable {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no updatable modifier %q", id))
		return
	}

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}

	mutate, err := modifierMutation(id, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	before := s.store.Get()
	preview := before
	mutate(&preview)

	var updated settings.Settings
	if slot.Enabled(before) != slot.Enabled(preview) {
		// The patch flips the modifier's flag: that is a lifecycle
		// change, not a parameter tweak, so it goes through the normal
		// notification path (full classification, bridge reconcile).
		updated, err = s.store.Update(mutate)
	} else {
		updated, err = s.store.UpdateQuiet(mutate)
		if err == nil {
			s.controller.RefreshParams(id)
		}
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, settings.ErrNotInitialized) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, slot.Params(updated))
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.panel.State())
}

func (s *Server) handlePanelToggle(w http.ResponseWriter, r *http.Request) {
	s.panel.Toggle()
	writeJSON(w, http.StatusOK, s.panel.State())
}

func (s *Server) handlePanelClose(w http.ResponseWriter, r *http.Request) {
	s.panel.Close()
	writeJSON(w, http.StatusOK, s.panel.State())
}

func (s *Server) handleClearSummary(w http.ResponseWriter, r *http.Request) {
	s.panel.ClearSummary()
	writeJSON(w, http.StatusOK, s.panel.State())
}

// handleSummarize publishes a SUMMARIZE_TEXT runtime message onto the bus,
// exercising the same inbound path the host runtime uses.
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	payload, err := json.Marshal(bridge.RuntimeMessage{
		Type:    bridge.MessageSummarizeText,
		Payload: body.Text,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.events.Publish(r.Context(), bus.SubjectRuntimeMessage, payload); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(logging.CategoryServer, "ws_upgrade_failed", err.Error(), nil)
		return
	}
	// The current state is queued on registration so new surfaces render
	// immediately.
	client := s.hub.register(conn, s.panel.State())
	if client == nil {
		conn.Close()
		return
	}
	go client.writeLoop()
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.profiles.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if profiles == nil {
		profiles = []*storage.Profile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if s.store.Loading() {
		writeError(w, http.StatusServiceUnavailable, "settings still loading")
		return
	}
	profile, err := s.profiles.Save(body.Name, s.store.Get())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (s *Server) handleApplyProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.profiles.Get(chi.URLParam(r, "id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrProfileNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	if err := s.store.Replace(profile.Settings); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.store.Get())
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	err := s.profiles.Delete(chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrProfileNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Shutdown disconnects websocket clients; the HTTP listener itself is
// owned by the caller.
func (s *Server) Shutdown(ctx context.Context) {
	s.hub.Close()
}

// modifierMutation decodes raw into the right parameter sub-tree and
// returns a mutation that installs it.
func modifierMutation(id modifier.ID, raw json.RawMessage) (func(*settings.Settings), error) {
	switch id {
	case modifier.ReadingRuler:
		var params settings.RulerSettings
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("invalid reading ruler params: %w", err)
		}
		return func(s *settings.Settings) { s.VisualAids.ReadingRuler = params }, nil
	case modifier.ScreenTint:
		var params settings.TintSettings
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("invalid screen tint params: %w", err)
		}
		return func(s *settings.Settings) { s.VisualAids.ScreenTint = params }, nil
	case modifier.FocusMode:
		var params settings.FocusSettings
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("invalid focus mode params: %w", err)
		}
		return func(s *settings.Settings) { s.VisualAids.FocusMode = params }, nil
	case modifier.HandConductor:
		var params settings.HandConductorSettings
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("invalid hand conductor params: %w", err)
		}
		return func(s *settings.Settings) { s.VisualAids.HandConductor = params }, nil
	case modifier.HandFocus:
		var params settings.HandFocusSettings
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("invalid hand focus params: %w", err)
		}
		return func(s *settings.Settings) { s.VisualAids.HandFocus = params }, nil
	default:
		return nil, fmt.Errorf("no parameter path for modifier %q", id)
	}
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
