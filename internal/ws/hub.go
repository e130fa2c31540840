// Package ws implements the real-time notification gateway: an
// authenticated websocket endpoint, a connection registry keyed by user,
// and store-and-forward delivery of notifications.
package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn wraps a websocket connection with a write lock so concurrent
// deliveries to the same socket cannot interleave frames.
type Conn struct {
	ID     string
	UserID uint64
	ws     *websocket.Conn
	mu     sync.Mutex
}

// WriteJSON sends one JSON message, serialized under the connection's
// write lock.
func (c *Conn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

// Hub is the injected connection registry: user id to the set of that
// user's live connections.  A user may hold several connections at once
// (multiple tabs or devices).  The zero map entry is removed as soon as a
// user's last connection goes away, so the registry does not grow with
// stale users.
type Hub struct {
	mu    sync.RWMutex
	conns map[uint64]map[string]*Conn
}

func NewHub() *Hub {
	return &Hub{conns: make(map[uint64]map[string]*Conn)}
}

// Add registers a connection under its user.
func (h *Hub) Add(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[c.UserID]
	if !ok {
		set = make(map[string]*Conn)
		h.conns[c.UserID] = set
	}
	set[c.ID] = c
}

// Remove deregisters a connection, dropping the user's entry entirely when
// it was the last one.
func (h *Hub) Remove(userID uint64, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[userID]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(h.conns, userID)
	}
}

// Connections returns a snapshot of the user's live connections.  The
// slice is safe to iterate after the lock is released.
func (h *Hub) Connections(userID uint64) []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.conns[userID]
	out := make([]*Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// Users returns how many users currently hold at least one connection.
func (h *Hub) Users() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
