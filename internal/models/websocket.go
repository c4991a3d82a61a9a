package models

import "encoding/json"

type FrameType string

const (
	// Client → server.
	FrameConnect FrameType = "connect"
	FrameMessage FrameType = "message"

	// Server → client.
	FrameRoomUsers   FrameType = "room.users"
	FrameRoomHistory FrameType = "room.history"
	FrameRoomMessage FrameType = "room.message"
	FrameRoomsList   FrameType = "rooms.list"
)

// ClientFrame is an inbound websocket frame after validation.
type ClientFrame struct {
	Type     FrameType `json:"type"`
	RoomID   string    `json:"roomId,omitempty"`
	MemberID string    `json:"memberId,omitempty"`
	Content  string    `json:"content,omitempty"`
}

// ParseClientFrame maps raw bytes onto the closed set of inbound frame
// variants. Malformed JSON and unrecognized types yield ok == false; the
// caller decides whether that closes the connection (handshake) or is
// silently dropped (chat phase).
func ParseClientFrame(raw []byte) (ClientFrame, bool) {
	var frame ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return ClientFrame{}, false
	}
	switch frame.Type {
	case FrameConnect, FrameMessage:
		return frame, true
	}
	return ClientFrame{}, false
}

type UsersFrame struct {
	Type  FrameType `json:"type"`
	Users []string  `json:"users"`
}

func NewUsersFrame(users []string) UsersFrame {
	if users == nil {
		users = []string{}
	}
	return UsersFrame{Type: FrameRoomUsers, Users: users}
}

type HistoryFrame struct {
	Type     FrameType `json:"type"`
	Messages []Message `json:"messages"`
}

func NewHistoryFrame(messages []Message) HistoryFrame {
	if messages == nil {
		messages = []Message{}
	}
	return HistoryFrame{Type: FrameRoomHistory, Messages: messages}
}

type MessageFrame struct {
	Type     FrameType `json:"type"`
	Username string    `json:"username"`
	Content  string    `json:"content"`
	SentAt   int64     `json:"sentAt"`
}

func NewMessageFrame(m Message) MessageFrame {
	return MessageFrame{
		Type:     FrameRoomMessage,
		Username: m.Username,
		Content:  m.Content,
		SentAt:   m.SentAt.UnixMilli(),
	}
}

type RoomsListFrame struct {
	Type  FrameType     `json:"type"`
	Rooms []RoomSummary `json:"rooms"`
}

func NewRoomsListFrame(rooms []RoomSummary) RoomsListFrame {
	if rooms == nil {
		rooms = []RoomSummary{}
	}
	return RoomsListFrame{Type: FrameRoomsList, Rooms: rooms}
}
