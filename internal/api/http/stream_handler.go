package http

import (
	"net/http"

	"ridepool-backend/internal/logger"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The stream is read-only and carries no per-user data.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleEventStream upgrades the connection and relays domain events until the client leaves.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.FromContext(r.Context()).Warn("Websocket upgrade failed", "error", err)
		return
	}
	s.hub.Serve(conn)
}
