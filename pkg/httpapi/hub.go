package httpapi

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/clearlens/overlay/pkg/overlay"
)

// Hub fans transient UI state out to connected websocket clients so
// presentation surfaces can render without holding any state themselves.
type Hub struct {
	mu      sync.RWMutex
	clients map[*hubClient]struct{}
	closed  bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*hubClient]struct{})}
}

// Broadcast sends the state to all clients, dropping slow consumers.
func (h *Hub) Broadcast(state overlay.UIState) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- state:
		default:
			go h.remove(c)
		}
	}
}

// Close disconnects all clients. Registrations after Close are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*hubClient]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		close(c.send)
	}
}

// register adds a client and queues the initial snapshot under the lock,
// so a concurrent Close can never close the channel first. Returns nil if
// the hub is already closed.
func (h *Hub) register(conn *websocket.Conn, initial overlay.UIState) *hubClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	c := &hubClient{
		conn: conn,
		send: make(chan overlay.UIState, 16),
	}
	h.clients[c] = struct{}{}
	c.send <- initial
	return c
}

func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

type hubClient struct {
	conn *websocket.Conn
	send chan overlay.UIState
}

// writeLoop pumps state snapshots to the client until the channel closes.
func (c *hubClient) writeLoop() {
	defer c.conn.Close()
	for state := range c.send {
		if err := c.conn.WriteJSON(state); err != nil {
			return
		}
	}
}
