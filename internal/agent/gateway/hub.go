package gateway

import (
	"context"
	"net/http"
	"sync"

	"github.com/danielmvs/fleetsync/internal/logging"
	"github.com/gorilla/websocket"
)

// Event types pushed to UI clients (the postMessage analog).
const (
	EventNetworkSuccess = "NETWORK_SUCCESS"
	EventCacheUsed      = "CACHE_USED"
	EventOfflineError   = "OFFLINE_ERROR"
	EventStartSync      = "START_SYNC"
	EventPush           = "PUSH"
)

// Inbound message types recognized by the worker.
const (
	MsgSkipWaiting = "SKIP_WAITING"
	MsgClearCache  = "CLEAR_CACHE"
	MsgStartSync   = "START_SYNC"
	MsgRegisterTag = "SYNC"
)

// Message is one inbound websocket frame from a UI client.
type Message struct {
	Type string `json:"type"`
	Tag  string `json:"tag,omitempty"`
}

// Reply is the answer sent back on the same connection for messages that
// expect one (CLEAR_CACHE).
type Reply struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Event is one outbound frame.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Handler processes one inbound message; a non-nil reply is written back to
// the sending client only.
type Handler func(ctx context.Context, msg Message) *Reply

// Hub fans worker events out to every connected UI client. Clients that fail
// a write are dropped; they reconnect on their own.
type Hub struct {
	log      logging.Logger
	upgrader websocket.Upgrader
	handler  Handler

	mu      sync.Mutex
	clients map[*websocket.Conn]*sync.Mutex
}

func NewHub(logger logging.Logger, handler Handler) *Hub {
	return &Hub{
		log:      logger,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		handler:  handler,
		clients:  make(map[*websocket.Conn]*sync.Mutex),
	}
}

// ServeWS upgrades the connection, registers the client and runs its read
// loop until the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", "err", err)
		return
	}

	writeMu := &sync.Mutex{}
	h.mu.Lock()
	h.clients[conn] = writeMu
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		if h.handler == nil {
			continue
		}
		if reply := h.handler(r.Context(), msg); reply != nil {
			writeMu.Lock()
			err := conn.WriteJSON(reply)
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Broadcast pushes an event to every connected client.
func (h *Hub) Broadcast(eventType string, payload any) {
	ev := Event{Type: eventType, Payload: payload}

	h.mu.Lock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for c, m := range h.clients {
		conns[c] = m
	}
	h.mu.Unlock()

	for conn, writeMu := range conns {
		writeMu.Lock()
		err := conn.WriteJSON(ev)
		writeMu.Unlock()
		if err != nil {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			_ = conn.Close()
		}
	}
}

// ClientCount reports how many UI clients are attached.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
