package models

import (
	"encoding/json"
	"time"
)

// Room is a capacity-bounded, password-protected chat channel. All fields are
// owned and mutated exclusively by the registry.
type Room struct {
	ID             string
	Public         bool
	MaxUsers       int
	PasswordDigest string
	// Members maps member ID (opaque session token) to display name.
	Members map[string]string
	// Reserved holds digests of normalized display names that ever claimed a
	// capacity slot in this room. It grows monotonically until eviction and
	// never exceeds MaxUsers, letting a disconnected user re-enter under the
	// same name without consuming a second slot.
	Reserved map[string]struct{}
	// ExpiresAt is zero while the room is occupied. It is armed when the last
	// member leaves and cleared again on join.
	ExpiresAt time.Time
}

// RoomSummary is the directory listing entry for a public room. TTL is nil
// for occupied rooms, otherwise the remaining grace period in milliseconds.
type RoomSummary struct {
	ID          string `json:"id"`
	MemberCount int    `json:"memberCount"`
	MaxUsers    int    `json:"maxUsers"`
	TTL         *int64 `json:"ttl"`
}

// Message is a stored chat message.
type Message struct {
	RoomID   string
	Username string
	Content  string
	SentAt   time.Time
}

// MarshalJSON emits the wire shape, with sentAt in Unix milliseconds.
func (m Message) MarshalJSON() ([]byte, error) {
	type wire struct {
		RoomID   string `json:"roomId"`
		Username string `json:"username"`
		Content  string `json:"content"`
		SentAt   int64  `json:"sentAt"`
	}
	return json.Marshal(wire{
		RoomID:   m.RoomID,
		Username: m.Username,
		Content:  m.Content,
		SentAt:   m.SentAt.UnixMilli(),
	})
}

type CreateRoomRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Hidden   bool   `json:"hidden"`
	MaxUsers int    `json:"maxUsers"`
}

type JoinRoomRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RoomCredentials is returned by create and join: everything a client needs
// to perform the websocket handshake.
type RoomCredentials struct {
	RoomID   string `json:"roomId"`
	MemberID string `json:"memberId"`
}
