package handlers

import (
	"net/http"
	"time"

	"chat-relay/internal/history"
	"chat-relay/internal/registry"
	ws "chat-relay/internal/websocket"
	"chat-relay/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	registry         *registry.Registry
	history          *history.Store
	hub              *ws.Hub
	handshakeTimeout time.Duration
	upgrader         websocket.Upgrader
}

func NewWebSocketHandlers(reg *registry.Registry, hist *history.Store, hub *ws.Hub, handshakeTimeout time.Duration) *WebSocketHandlers {
	return &WebSocketHandlers{
		registry:         reg,
		history:          hist,
		hub:              hub,
		handshakeTimeout: handshakeTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

// HandleWebSocket upgrades the connection and hands it to the session state
// machine. Binding to a room happens via the connect frame, not here.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn, h.registry, h.history, h.handshakeTimeout)
	go client.WritePump()
	go client.ReadPump()
}
