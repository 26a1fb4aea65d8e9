// Package stream fans framed messages out to connected WebSocket clients
// as JSON. It is the "downstream message consumer" transport: parsing or
// acting on a message's content is out of scope here, only delivering it.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"p25recv/internal/framer"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// envelope is the JSON shape broadcast to every connected client: exactly
// one of Payload or SyncLoss is set.
type envelope struct {
	Type      string                `json:"type"`
	Payload   *framer.FramedPayload `json:"payload,omitempty"`
	SyncLoss  *framer.SyncLoss      `json:"sync_loss,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

// Hub tracks connected WebSocket clients and broadcasts framed messages to
// all of them. The zero value is not usable; construct with New.
type Hub struct {
	logger *logrus.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

// New creates an empty Hub.
func New(logger *logrus.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// ServeHTTP upgrades the request to a WebSocket connection and registers it
// for broadcasts until the client disconnects. It never reads application
// messages from the client; this is a one-way fan-out.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.WithError(err).Warn("websocket upgrade failed")
		}
		return
	}

	send := make(chan []byte, 32)
	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// This is a one-way fan-out: clients never send application data, but
	// a read loop is still required to pump control frames and notice a
	// client-initiated close, which only surfaces through ReadMessage.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case msg, ok := <-send:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// BroadcastPayload fans a framed payload out to every connected client.
func (h *Hub) BroadcastPayload(p framer.FramedPayload) {
	h.broadcast(envelope{Type: "payload", Payload: &p, Timestamp: p.Time})
}

// BroadcastSyncLoss fans a sync-loss event out to every connected client.
func (h *Hub) BroadcastSyncLoss(s framer.SyncLoss) {
	h.broadcast(envelope{Type: "sync_loss", SyncLoss: &s, Timestamp: s.Time})
}

func (h *Hub) broadcast(e envelope) {
	data, err := json.Marshal(e)
	if err != nil {
		if h.logger != nil {
			h.logger.WithError(err).Warn("failed to marshal stream envelope")
		}
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, send := range h.clients {
		select {
		case send <- data:
		default:
			// Client is too slow to drain; drop it rather than block the
			// whole broadcast on one stuck connection.
			delete(h.clients, conn)
			close(send)
			conn.Close()
		}
	}
}

// ClientCount reports the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
