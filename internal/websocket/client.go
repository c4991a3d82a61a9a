// Package websocket carries the live side of the relay: the per-connection
// session state machine (Client) and the fan-out broadcast engine (Hub).
package websocket

import (
	"encoding/json"
	"strings"
	"time"

	"chat-relay/internal/history"
	"chat-relay/internal/models"
	"chat-relay/internal/registry"
	"chat-relay/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client binds one websocket connection to a (room, member) pair. The
// binding is established by a single handshake frame and stays immutable for
// the connection's lifetime.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	registry *registry.Registry
	history  *history.Store

	handshakeTimeout time.Duration

	// Set once the handshake is accepted.
	roomID   string
	memberID string
	username string
	bound    bool
}

func NewClient(hub *Hub, conn *websocket.Conn, reg *registry.Registry, hist *history.Store, handshakeTimeout time.Duration) *Client {
	return &Client{
		hub:              hub,
		conn:             conn,
		send:             make(chan []byte, 256),
		registry:         reg,
		history:          hist,
		handshakeTimeout: handshakeTimeout,
	}
}

// ReadPump drives the connection state machine: exactly one handshake frame
// binds the connection, every later frame is interpreted as a chat frame.
// Runs until the transport closes.
func (c *Client) ReadPump() {
	defer c.teardown()

	if !c.handshake() {
		return
	}

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error: %v", err)
			}
			return
		}
		// Malformed chat frames are dropped, never fatal to the connection.
		frame, ok := models.ParseClientFrame(raw)
		if !ok || frame.Type != models.FrameMessage {
			continue
		}
		c.relayMessage(frame.Content)
	}
}

// handshake waits for the single connect frame and validates its binding
// against the registry. Any other first frame, or a stale binding, closes
// the connection with no error frame.
func (c *Client) handshake() bool {
	c.conn.SetReadDeadline(time.Now().Add(c.handshakeTimeout))
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return false
	}
	frame, ok := models.ParseClientFrame(raw)
	if !ok || frame.Type != models.FrameConnect {
		return false
	}
	username, ok := c.registry.MemberName(frame.RoomID, frame.MemberID)
	if !ok {
		return false
	}

	c.roomID = frame.RoomID
	c.memberID = frame.MemberID
	c.username = username
	c.bound = true
	c.hub.Register(c)

	c.pushSnapshot()
	return true
}

// pushSnapshot queues the member-list snapshot and the retained history
// replay for the newly bound connection.
func (c *Client) pushSnapshot() {
	frames := []any{
		models.NewUsersFrame(c.registry.MemberNames(c.roomID)),
		models.NewHistoryFrame(c.history.HistoryFor(c.roomID, time.Now())),
	}
	for _, frame := range frames {
		data, err := json.Marshal(frame)
		if err != nil {
			logger.Error("Error marshaling snapshot frame: %v", err)
			continue
		}
		select {
		case c.send <- data:
		default:
			return
		}
	}
}

// relayMessage stores and fans out one chat message. The author's display
// name comes from the registry, never from the payload. Content that is
// empty after trimming is dropped without broadcasting or storing.
func (c *Client) relayMessage(content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	msg := models.Message{
		RoomID:   c.roomID,
		Username: c.username,
		Content:  content,
		SentAt:   time.Now(),
	}
	c.history.Append(msg)
	c.hub.BroadcastToRoom(c.roomID, models.NewMessageFrame(msg))
}

// teardown releases the membership slot and pushes the updated member list
// to the survivors. Safe for connections that never completed the handshake.
func (c *Client) teardown() {
	c.conn.Close()
	if !c.bound {
		// Never registered, so the hub will not close the send channel.
		close(c.send)
		return
	}
	c.hub.Unregister(c)
	c.registry.Leave(c.roomID, c.memberID)
	c.hub.BroadcastToRoom(c.roomID, models.NewUsersFrame(c.registry.MemberNames(c.roomID)))
}

// WritePump flushes queued frames to the connection and keeps it alive with
// periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Error("Write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
