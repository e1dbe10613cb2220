// Package bridge connects the event bus to the orchestration layer. The
// gesture bridge is active only while the hand conductor is enabled; the
// message bridge is active for the whole mounted lifetime.
package bridge

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/clearlens/overlay/pkg/bus"
	"github.com/clearlens/overlay/pkg/logging"
	"github.com/clearlens/overlay/pkg/overlay"
	"github.com/clearlens/overlay/pkg/settings"
)

// Directions carried by discrete swipe events.
const (
	DirectionLeft  = "LEFT"
	DirectionRight = "RIGHT"
)

// scrollMultiplier amplifies raw hand-motion deltas into page scroll.
const scrollMultiplier = 2.0

// ScrollEvent is the continuous gesture payload.
type ScrollEvent struct {
	DeltaY float64 `json:"deltaY"`
}

// SwipeEvent is the discrete gesture payload.
type SwipeEvent struct {
	Direction string `json:"direction"`
}

// Scroller applies an immediate page scroll. Implementations must not
// animate: smooth scrolling lags behind continuous high-frequency input.
type Scroller interface {
	ScrollBy(delta float64)
}

// ScrollerFunc adapts a function into a Scroller.
type ScrollerFunc func(delta float64)

func (f ScrollerFunc) ScrollBy(delta float64) { f(delta) }

// GestureBridge translates hand-conductor gesture events into scroll and
// panel actions. Reconcile attaches or detaches its two subscriptions to
// track the configuration; detach always happens before re-attach so
// repeated enable/disable cycles never accumulate duplicate listeners.
type GestureBridge struct {
	bus      bus.EventBus
	panel    *overlay.Panel
	scroller Scroller
	logger   *logging.Logger

	mu        sync.Mutex
	scrollSub bus.Subscription
	swipeSub  bus.Subscription
	closed    bool
}

// NewGestureBridge creates a detached bridge. logger may be nil.
func NewGestureBridge(eventBus bus.EventBus, panel *overlay.Panel, scroller Scroller, logger *logging.Logger) *GestureBridge {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GestureBridge{
		bus:      eventBus,
		panel:    panel,
		scroller: scroller,
		logger:   logger,
	}
}

// Reconcile attaches the gesture subscriptions when the master switch and
// the hand conductor are both on, and detaches them otherwise. Call it
// from the settings subscription so listener state tracks every change of
// either flag.
func (g *GestureBridge) Reconcile(ctx context.Context, cfg settings.Settings) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}

	desired := cfg.Enabled && cfg.VisualAids.HandConductor.Enabled
	if !desired {
		g.detachLocked()
		return nil
	}

	// Stale subscriptions from a previous enablement are removed before
	// attaching fresh ones.
	g.detachLocked()

	scrollSub, err := g.bus.Subscribe(ctx, bus.SubjectGestureScroll, g.handleScroll)
	if err != nil {
		return err
	}
	swipeSub, err := g.bus.Subscribe(ctx, bus.SubjectGestureSwipe, g.handleSwipe)
	if err != nil {
		scrollSub.Unsubscribe()
		return err
	}

	g.scrollSub = scrollSub
	g.swipeSub = swipeSub
	g.logger.Debug(logging.CategoryGesture, "listeners_attached", "", nil)
	return nil
}

// Attached reports whether the gesture subscriptions are live.
func (g *GestureBridge) Attached() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scrollSub != nil
}

// Close detaches permanently. Registered as a controller teardown so the
// listeners are released even when no final "disabled" snapshot arrives.
func (g *GestureBridge) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.detachLocked()
	g.closed = true
}

func (g *GestureBridge) detachLocked() {
	if g.scrollSub != nil {
		g.scrollSub.Unsubscribe()
		g.scrollSub = nil
	}
	if g.swipeSub != nil {
		g.swipeSub.Unsubscribe()
		g.swipeSub = nil
	}
}

func (g *GestureBridge) handleScroll(event *bus.Event) {
	var payload ScrollEvent
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		g.logger.Warn(logging.CategoryGesture, "malformed_scroll", err.Error(), nil)
		return
	}
	metricGestureEvents.WithLabelValues("scroll").Inc()
	if g.scroller != nil {
		g.scroller.ScrollBy(payload.DeltaY * scrollMultiplier)
	}
}

func (g *GestureBridge) handleSwipe(event *bus.Event) {
	var payload SwipeEvent
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		g.logger.Warn(logging.CategoryGesture, "malformed_swipe", err.Error(), nil)
		return
	}
	metricGestureEvents.WithLabelValues("swipe").Inc()
	switch strings.ToUpper(strings.TrimSpace(payload.Direction)) {
	case DirectionRight:
		g.panel.Toggle()
	case DirectionLeft:
		// Idempotent: closing an already-closed panel does nothing.
		g.panel.Close()
	}
}
