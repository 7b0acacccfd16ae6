// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	applog "audiolink/internal/log"

	"github.com/gorilla/websocket"
)

const (
	broadcastQueue = 256
	writeWait      = 2 * time.Second
)

var errHubClosed = errors.New("websocket hub closed")

// WebSocketHub broadcasts every sent value as JSON to all connected
// websocket clients. It is an http.Handler; mount it on any router. A
// client that connects late first receives the most recent status event.
type WebSocketHub struct {
	upgrader websocket.Upgrader

	clientsMu  sync.Mutex
	clients    map[*websocket.Conn]bool
	lastStatus *Event

	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	dropped atomic.Uint64
}

// NewWebSocketHub starts the broadcast loop.
func NewWebSocketHub() *WebSocketHub {
	h := &WebSocketHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, broadcastQueue),
		done:      make(chan struct{}),
	}

	h.wg.Add(1)
	go h.handleBroadcasts()
	return h
}

// ServeHTTP upgrades the request and registers the client.
func (h *WebSocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketHub: Upgrade error: %v", err)
		return
	}

	h.clientsMu.Lock()
	select {
	case <-h.done:
		h.clientsMu.Unlock()
		conn.Close()
		return
	default:
	}
	if h.lastStatus != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(h.lastStatus); err != nil {
			h.clientsMu.Unlock()
			conn.Close()
			return
		}
	}
	h.clients[conn] = true
	total := len(h.clients)
	h.clientsMu.Unlock()
	applog.Infof("WebSocketHub: Client connected, total: %d", total)

	// Clients never send anything meaningful; a failed read means they left.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(conn)
				return
			}
		}
	}()
}

func (h *WebSocketHub) remove(conn *websocket.Conn) {
	h.clientsMu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	total := len(h.clients)
	h.clientsMu.Unlock()
	conn.Close()
	if ok {
		applog.Infof("WebSocketHub: Client disconnected, total: %d", total)
	}
}

// Clients returns the number of connected clients.
func (h *WebSocketHub) Clients() int {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	return len(h.clients)
}

// Dropped returns how many values were discarded because the broadcast
// queue was full.
func (h *WebSocketHub) Dropped() uint64 { return h.dropped.Load() }

func (h *WebSocketHub) handleBroadcasts() {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return
		case data := <-h.broadcast:
			h.clientsMu.Lock()
			if ev, ok := data.(Event); ok && ev.Kind == KindStatus {
				h.lastStatus = &ev
			}
			for client := range h.clients {
				_ = client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteJSON(data); err != nil {
					applog.Debugf("WebSocketHub: Error sending to client: %v", err)
					client.Close()
					delete(h.clients, client)
				}
			}
			h.clientsMu.Unlock()
		}
	}
}

// Send queues data for broadcast. It never blocks; when the queue is full
// the value is dropped.
func (h *WebSocketHub) Send(data any) error {
	select {
	case <-h.done:
		return errHubClosed
	default:
	}
	select {
	case h.broadcast <- data:
	default:
		h.dropped.Add(1)
	}
	return nil
}

// Close disconnects all clients and stops the broadcast loop.
func (h *WebSocketHub) Close() error {
	h.closeOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		h.clientsMu.Lock()
		for client := range h.clients {
			client.Close()
		}
		h.clients = make(map[*websocket.Conn]bool)
		h.clientsMu.Unlock()
		applog.Debugf("WebSocketHub: Closed")
	})
	return nil
}

var _ Transport = (*WebSocketHub)(nil)
var _ http.Handler = (*WebSocketHub)(nil)
