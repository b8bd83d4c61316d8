package events

import (
	"context"
	"sync"
	"time"

	"ridepool-backend/internal/domain"
	"ridepool-backend/internal/logger"
	"ridepool-backend/internal/metrics"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

type wsClient struct {
	conn *websocket.Conn
	send chan domain.Event
}

// Hub pushes events to connected websocket clients. A client that cannot
// keep up is dropped rather than blocking the publisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	buffer  int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{clients: make(map[*wsClient]struct{}), buffer: buffer}
}

func (h *Hub) Name() string { return "websocket" }

func (h *Hub) Publish(_ context.Context, evt domain.Event) error {
	h.mu.RLock()
	var slow []*wsClient
	for c := range h.clients {
		select {
		case c.send <- evt:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logger.Warn("Dropping slow websocket client", "remote", c.conn.RemoteAddr().String())
		h.remove(c)
	}
	return nil
}

// Serve registers conn and blocks until the client disconnects.
func (h *Hub) Serve(conn *websocket.Conn) {
	c := &wsClient{conn: conn, send: make(chan domain.Event, h.buffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.WSClients.Inc()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Drain reads so close frames are processed.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer h.remove(c)
	for {
		select {
		case <-done:
			return
		case evt, ok := <-c.send:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(evt); err != nil {
				logger.Debug("Websocket write failed", "error", err)
				return
			}
		}
	}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	_ = c.conn.Close()
	metrics.WSClients.Dec()
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
