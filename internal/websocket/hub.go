package websocket

import (
	"encoding/json"

	"chat-relay/pkg/logger"
)

type roomEnvelope struct {
	roomID string
	data   []byte
}

// Hub is the broadcast engine. A single goroutine owns the set of bound
// clients, so registration and fan-out never race and need no locks.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	toRoom     chan roomEnvelope
	toAll      chan []byte
	shutdown   chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		toRoom:     make(chan roomEnvelope),
		toAll:      make(chan []byte),
		shutdown:   make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.shutdown:
			for client := range h.clients {
				close(client.send)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			logger.Info("User %s connected to room %s", client.username, client.roomID)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				logger.Info("User %s disconnected from room %s", client.username, client.roomID)
			}

		case envelope := <-h.toRoom:
			for client := range h.clients {
				if client.roomID != envelope.roomID {
					continue
				}
				h.deliver(client, envelope.data)
			}

		case data := <-h.toAll:
			for client := range h.clients {
				h.deliver(client, data)
			}
		}
	}
}

// deliver drops clients that cannot keep up instead of blocking the loop.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		close(client.send)
		delete(h.clients, client)
	}
}

// BroadcastToRoom serializes the frame once and fans it out to every bound
// connection of the room. Connections bound to other rooms never see it.
func (h *Hub) BroadcastToRoom(roomID string, frame any) {
	data, err := json.Marshal(frame)
	if err != nil {
		logger.Error("Error marshaling room broadcast: %v", err)
		return
	}
	h.toRoom <- roomEnvelope{roomID: roomID, data: data}
}

// BroadcastToAll delivers to every bound connection regardless of room. Used
// only for public-room directory updates.
func (h *Hub) BroadcastToAll(frame any) {
	data, err := json.Marshal(frame)
	if err != nil {
		logger.Error("Error marshaling broadcast: %v", err)
		return
	}
	h.toAll <- data
}

func (h *Hub) Register(c *Client) {
	h.register <- c
}

func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// Shutdown stops the run loop and closes every client's send channel.
func (h *Hub) Shutdown() {
	close(h.shutdown)
}
