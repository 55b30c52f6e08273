// Package monitor serves session events over websocket plus metrics and a
// status snapshot over HTTP.
package monitor

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rftool/pkg/session"
	"github.com/rs/zerolog"
)

const (
	sendBuffer = 64
	writeWait  = 5 * time.Second
)

// Client is one websocket subscriber.
type Client struct {
	conn *websocket.Conn
	send chan interface{}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Hub fans session events out to websocket clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	log     zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{clients: make(map[*Client]bool), log: log}
}

// Publish implements session.Observer. Slow clients miss events.
func (h *Hub) Publish(ev session.Event) {
	h.broadcastJSON(eventMessage{Type: "session", Event: ev})
}

type eventMessage struct {
	Type string `json:"type"`
	session.Event
}

func (h *Hub) broadcastJSON(msg interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (h *Hub) sendTo(c *Client, msg interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *Hub) register(conn *websocket.Conn) *Client {
	c := &Client{conn: conn, send: make(chan interface{}, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	go c.writePump()
	h.log.Debug().Int("clients", n).Msg("monitor client connected")
	return c
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debug().Int("clients", n).Msg("monitor client disconnected")
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
