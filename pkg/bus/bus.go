// Package bus provides the in-page event bus the overlay listens on.
// Hand-tracking collaborators publish gesture events and the host runtime
// publishes messages; the overlay's bridges subscribe. The default
// implementation is in-memory; a NATS backend supports gesture producers
// running in a separate process.
package bus

import (
	"context"
	"errors"
	"time"
)

// Subjects carried on the bus. Gesture subjects are only consumed while
// the hand conductor is enabled; the runtime subject is consumed for the
// whole mounted lifetime.
const (
	SubjectGestureScroll  = "overlay.gesture.scroll"
	SubjectGestureSwipe   = "overlay.gesture.swipe"
	SubjectRuntimeMessage = "overlay.runtime.message"
)

// ErrClosed is returned when operating on a closed bus or subscription.
var ErrClosed = errors.New("bus or subscription closed")

// EventBus is the pub/sub interface the bridges are written against.
// Implementations must be safe for concurrent use.
type EventBus interface {
	// Publish sends an event to all subscribers of the given subject.
	// Returns immediately; does not wait for delivery.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for events on the given subject.
	// The handler is called in a separate goroutine per subscription.
	// Supports wildcards: "overlay.gesture.*" matches both gesture subjects.
	Subscribe(ctx context.Context, subject string, handler EventHandler) (Subscription, error)

	// Close shuts down the bus and all subscriptions.
	Close() error
}

// EventHandler processes incoming events.
type EventHandler func(event *Event)

// Event represents an incoming event from the bus.
type Event struct {
	Subject string
	Data    []byte
}

// Subscription represents an active subscription that can be cancelled.
// Unsubscribing twice is a no-op; the bridges rely on that for their
// detach-before-attach discipline.
type Subscription interface {
	// Unsubscribe stops receiving events and cleans up resources.
	Unsubscribe() error

	// Subject returns the subject pattern this subscription is for.
	Subject() string
}

// Config holds configuration for creating an EventBus.
type Config struct {
	// URL is the NATS server URL. Ignored for the in-memory bus.
	URL string

	// Name is a client identifier for debugging/monitoring.
	Name string

	// Timeout is the connect timeout for remote backends.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:     "nats://localhost:4222",
		Name:    "overlay",
		Timeout: 10 * time.Second,
	}
}
