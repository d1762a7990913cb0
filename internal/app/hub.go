package app

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageType tags a pushed message.
type MessageType string

const (
	MessageView    MessageType = "view"
	MessageAgo     MessageType = "ago"
	MessageOverlay MessageType = "overlay"
)

// Message is one frame pushed to connected pages.
type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload"`
}

const (
	sendBuffer   = 16
	writeTimeout = 10 * time.Second
)

// WebSocket upgrader for view pushes
var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type hubClient struct {
	conn *websocket.Conn
	send chan Message
}

// Hub fans messages out to every connected page. A page that cannot keep up
// is disconnected rather than allowed to block the broadcaster.
type Hub struct {
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	closed  bool
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[*hubClient]struct{}),
	}
}

// register adds conn with initial queued ahead of any later broadcast.
func (h *Hub) register(conn *websocket.Conn, initial Message) (*hubClient, bool) {
	c := &hubClient{conn: conn, send: make(chan Message, sendBuffer)}
	c.send <- initial

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	h.clients[c] = struct{}{}
	go h.writeLoop(c)
	return c, true
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *hubClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) writeLoop(c *hubClient) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			h.logger.Debug("websocket write failed", zap.Error(err))
			h.unregister(c)
			// Drain so a concurrent broadcast never blocks on a dead client.
			for range c.send {
			}
			return
		}
	}
}

// Broadcast queues msg for every page. Safe to call after Close.
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("websocket client too slow, disconnecting")
			h.removeLocked(c)
		}
	}
}

// Count returns the number of connected pages.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every page and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

// ServeWS upgrades the request and streams messages until the page goes
// away. initial is sent first.
func (h *Hub) ServeWS(w http.ResponseWriter, req *http.Request, initial Message) {
	conn, err := wsUpgrader.Upgrade(w, req, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	c, ok := h.register(conn, initial)
	if !ok {
		conn.Close()
		return
	}

	// Pages only listen; reading detects the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.unregister(c)
			return
		}
	}
}
