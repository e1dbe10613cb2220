// Command overlayd runs the reading-accessibility overlay daemon: it owns
// the settings store, the modifier-lifecycle orchestrator, the gesture and
// runtime-message bridges, and the local HTTP control surface.
//
// The daemon registers reference adapters that announce state changes to
// the log; real page adapters (typography, ruler, tint, focus, speech)
// plug in through the modifier registry.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clearlens/overlay/pkg/bridge"
	"github.com/clearlens/overlay/pkg/bus"
	"github.com/clearlens/overlay/pkg/httpapi"
	"github.com/clearlens/overlay/pkg/logging"
	"github.com/clearlens/overlay/pkg/modifier"
	"github.com/clearlens/overlay/pkg/overlay"
	"github.com/clearlens/overlay/pkg/settings"
	"github.com/clearlens/overlay/pkg/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "overlayd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		dataDir  = flag.String("data-dir", defaultDataDir(), "directory for settings, profiles, and logs")
		listen   = flag.String("listen", "127.0.0.1:4470", "control surface bind address")
		natsURL  = flag.String("nats", "", "NATS URL for out-of-process gesture producers (empty = in-memory bus)")
		logLevel = flag.String("log-level", "info", "minimum log level (debug, info, warn, error)")
	)
	flag.Parse()

	logger, err := logging.NewLogger(filepath.Join(*dataDir, "logs"))
	if err != nil {
		return err
	}
	defer logger.Close()
	logger.SetMinLevel(logging.Level(*logLevel))

	eventBus, err := newEventBus(*natsURL)
	if err != nil {
		return err
	}
	defer eventBus.Close()

	store := settings.NewStore(filepath.Join(*dataDir, "settings.yaml"))
	panel := overlay.NewPanel()
	registry := newAnnouncingRegistry(logger)
	controller := overlay.NewController(registry, store, logger)

	gesture := bridge.NewGestureBridge(eventBus, panel, bridge.ScrollerFunc(func(delta float64) {
		logger.Debug(logging.CategoryGesture, "scroll", "", map[string]any{"delta": delta})
	}), logger)
	message := bridge.NewMessageBridge(eventBus, panel, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Teardown order: adapter sweep first (inside Close), then bridge
	// detaches, then the panel reset.
	controller.AddTeardown(gesture.Close)
	controller.AddTeardown(message.Close)
	controller.AddTeardown(panel.Reset)
	defer controller.Close()

	store.Subscribe(controller.OnSettings)
	store.Subscribe(func(cfg settings.Settings) {
		if err := gesture.Reconcile(ctx, cfg); err != nil {
			logger.Error(logging.CategoryGesture, "reconcile_failed", err.Error(), nil)
		}
	})
	if err := message.Attach(ctx); err != nil {
		return fmt.Errorf("attach message bridge: %w", err)
	}
	if err := store.Initialize(); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	profiles, err := storage.NewProfileStore(filepath.Join(*dataDir, "profiles.db"))
	if err != nil {
		return fmt.Errorf("open profile store: %w", err)
	}
	defer profiles.Close()

	hub := httpapi.NewHub()
	panel.SetOnChange(hub.Broadcast)
	server := httpapi.NewServer(store, controller, panel, profiles, eventBus, hub, logger)

	httpServer := &http.Server{
		Addr:              *listen,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info(logging.CategoryServer, "listening", *listen, nil)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		err := store.Watch(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
		return httpServer.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func newEventBus(natsURL string) (bus.EventBus, error) {
	if natsURL == "" {
		return bus.NewMemoryBus(), nil
	}
	cfg := bus.DefaultConfig()
	cfg.URL = natsURL
	return bus.NewNATSBus(cfg)
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".overlay"
	}
	return filepath.Join(home, ".overlay")
}

// newAnnouncingRegistry installs reference adapters for every modifier
// slot. They only log; real page adapters replace them in an embedded
// deployment.
func newAnnouncingRegistry(logger *logging.Logger) *modifier.Registry {
	registry := modifier.NewRegistry()

	registry.SetTypography(announcingApplier{id: modifier.Typography, logger: logger})
	for _, slot := range modifier.Slots() {
		id := slot.ID
		registry.Register(id, modifier.Funcs{
			EnableFunc: func(cfg settings.Settings) error {
				return logger.Info(logging.CategoryModifier, "enabled", string(id), nil)
			},
			UpdateFunc: func(cfg settings.Settings) error {
				return logger.Info(logging.CategoryModifier, "updated", string(id), nil)
			},
			DisableFunc: func() error {
				return logger.Info(logging.CategoryModifier, "disabled", string(id), nil)
			},
		})
	}
	return registry
}

type announcingApplier struct {
	id     modifier.ID
	logger *logging.Logger
}

func (a announcingApplier) Apply(cfg settings.Settings) error {
	return a.logger.Info(logging.CategoryModifier, "applied", string(a.id), map[string]any{
		"font_scale":  cfg.Typography.FontScale,
		"line_height": cfg.Typography.LineHeight,
	})
}

func (a announcingApplier) Remove() error {
	return a.logger.Info(logging.CategoryModifier, "removed", string(a.id), nil)
}
