package bridge

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/clearlens/overlay/pkg/bus"
	"github.com/clearlens/overlay/pkg/logging"
	"github.com/clearlens/overlay/pkg/overlay"
)

// MessageSummarizeText is the only runtime message kind the overlay reacts
// to. Its payload is the summary text to present.
const MessageSummarizeText = "SUMMARIZE_TEXT"

// RuntimeMessage is the host-runtime message envelope.
type RuntimeMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// MessageBridge subscribes to the host-runtime message channel for the
// mounted lifetime, independent of the master switch: a summarization
// request is honored even while accessibility aids are disabled. Exactly
// one subscription is registered per mount and removed exactly once.
type MessageBridge struct {
	bus    bus.EventBus
	panel  *overlay.Panel
	logger *logging.Logger

	mu        sync.Mutex
	sub       bus.Subscription
	closeOnce sync.Once
}

// NewMessageBridge creates a detached bridge. logger may be nil.
func NewMessageBridge(eventBus bus.EventBus, panel *overlay.Panel, logger *logging.Logger) *MessageBridge {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &MessageBridge{
		bus:    eventBus,
		panel:  panel,
		logger: logger,
	}
}

// Attach registers the runtime message subscription. Calling Attach on an
// already-attached bridge is a no-op.
func (m *MessageBridge) Attach(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sub != nil {
		return nil
	}
	sub, err := m.bus.Subscribe(ctx, bus.SubjectRuntimeMessage, m.handle)
	if err != nil {
		return err
	}
	m.sub = sub
	return nil
}

// Close removes the subscription exactly once.
func (m *MessageBridge) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.sub != nil {
			m.sub.Unsubscribe()
			m.sub = nil
		}
	})
}

func (m *MessageBridge) handle(event *bus.Event) {
	var msg RuntimeMessage
	if err := json.Unmarshal(event.Data, &msg); err != nil {
		// Malformed messages are ignored, not surfaced.
		m.logger.Debug(logging.CategoryMessage, "malformed_message", err.Error(), nil)
		return
	}
	if msg.Type != MessageSummarizeText {
		return
	}
	text, ok := msg.Payload.(string)
	if !ok || text == "" {
		return
	}
	metricSummariesReceived.Inc()
	// Summary display and settings panel are mutually exclusive; showing
	// a summary force-closes the panel.
	m.panel.SetSummary(text)
	m.logger.Info(logging.CategoryMessage, "summary_received", "", map[string]any{
		"length": len(text),
	})
}
