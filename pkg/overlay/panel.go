package overlay

import "sync"

// UIState is the transient presentation state consumed by the floating
// control, settings panel, and summary surface. It is never persisted and
// is reset on teardown.
type UIState struct {
	PanelOpen bool   `json:"panelOpen"`
	Summary   string `json:"summary,omitempty"`
}

// Panel owns the transient UI state. All mutation goes through it so the
// presentation surfaces hold no state of their own; they re-render from
// the snapshot delivered by the onChange callback.
type Panel struct {
	mu       sync.Mutex
	open     bool
	summary  string
	onChange func(UIState)
}

// NewPanel creates a panel in the closed state with no pending summary.
func NewPanel() *Panel {
	return &Panel{}
}

// SetOnChange configures the callback for state updates and immediately
// delivers the current snapshot.
func (p *Panel) SetOnChange(fn func(UIState)) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.onChange = fn
	state := p.stateLocked()
	p.mu.Unlock()
	if fn != nil {
		fn(state)
	}
}

// Toggle flips the panel between open and closed.
func (p *Panel) Toggle() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.open = !p.open
	state := p.stateLocked()
	cb := p.onChange
	p.mu.Unlock()
	if cb != nil {
		cb(state)
	}
}

// Open opens the panel if it is not already open.
func (p *Panel) Open() {
	p.setOpen(true)
}

// Close closes the panel. Closing an already-closed panel has no
// observable effect.
func (p *Panel) Close() {
	p.setOpen(false)
}

func (p *Panel) setOpen(open bool) {
	if p == nil {
		return
	}
	p.mu.Lock()
	if p.open == open {
		p.mu.Unlock()
		return
	}
	p.open = open
	state := p.stateLocked()
	cb := p.onChange
	p.mu.Unlock()
	if cb != nil {
		cb(state)
	}
}

// SetSummary stores summary text and force-closes the panel: the summary
// surface and the settings panel are mutually exclusive in the UI.
func (p *Panel) SetSummary(text string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.summary = text
	p.open = false
	state := p.stateLocked()
	cb := p.onChange
	p.mu.Unlock()
	if cb != nil {
		cb(state)
	}
}

// ClearSummary discards any pending summary text.
func (p *Panel) ClearSummary() {
	if p == nil {
		return
	}
	p.mu.Lock()
	if p.summary == "" {
		p.mu.Unlock()
		return
	}
	p.summary = ""
	state := p.stateLocked()
	cb := p.onChange
	p.mu.Unlock()
	if cb != nil {
		cb(state)
	}
}

// State returns the current snapshot.
func (p *Panel) State() UIState {
	if p == nil {
		return UIState{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

// Reset returns the panel to closed with no summary, without firing the
// callback. Called from teardown, after which nothing should render.
func (p *Panel) Reset() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.open = false
	p.summary = ""
	p.mu.Unlock()
}

func (p *Panel) stateLocked() UIState {
	return UIState{PanelOpen: p.open, Summary: p.summary}
}
