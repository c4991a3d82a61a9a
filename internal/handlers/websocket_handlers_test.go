package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-relay/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, frame any) {
	t.Helper()
	data, err := json.Marshal(frame)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func connect(t *testing.T, conn *websocket.Conn, creds models.RoomCredentials) {
	t.Helper()
	sendFrame(t, conn, models.ClientFrame{Type: models.FrameConnect, RoomID: creds.RoomID, MemberID: creds.MemberID})
}

// readFrame decodes the next frame and fails the test if it does not carry
// the expected type.
func readFrame(t *testing.T, conn *websocket.Conn, want models.FrameType) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame map[string]any
	require.NoError(t, json.Unmarshal(raw, &frame))
	require.Equal(t, string(want), frame["type"], "frame: %s", raw)
	return frame
}

func userList(frame map[string]any) []string {
	var users []string
	for _, u := range frame["users"].([]any) {
		users = append(users, u.(string))
	}
	return users
}

func expectClosed(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "expected the server to close the connection")
}

func TestEndToEndChatFlow(t *testing.T) {
	srv, reg := newTestServer(t)

	// Alice creates a two-seat room.
	creds := createRoom(t, srv, models.CreateRoomRequest{Username: "alice", Password: "secret", MaxUsers: 2})
	require.Regexp(t, roomIDPattern, creds.RoomID)
	joinURL := fmt.Sprintf("%s/api/rooms/%s/join", srv.URL, creds.RoomID)

	// Alice binds her connection and receives the snapshot.
	alice := dialWS(t, srv)
	connect(t, alice, creds)
	users := readFrame(t, alice, models.FrameRoomUsers)
	assert.Equal(t, []string{"alice"}, userList(users))
	history := readFrame(t, alice, models.FrameRoomHistory)
	assert.Empty(t, history["messages"])

	// Bob joins with the correct password.
	resp := postJSON(t, joinURL, models.JoinRoomRequest{Username: "bob", Password: "secret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bobCreds models.RoomCredentials
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bobCreds))

	// Alice sees the refreshed roster pushed by the REST join.
	users = readFrame(t, alice, models.FrameRoomUsers)
	assert.Equal(t, []string{"alice", "bob"}, userList(users))

	// A third identity is rejected on capacity.
	resp = postJSON(t, joinURL, models.JoinRoomRequest{Username: "carol", Password: "secret"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Bob binds and gets his own snapshot.
	bob := dialWS(t, srv)
	connect(t, bob, bobCreds)
	readFrame(t, bob, models.FrameRoomUsers)
	readFrame(t, bob, models.FrameRoomHistory)

	// A malformed frame and an unknown type are silently dropped.
	require.NoError(t, bob.WriteMessage(websocket.TextMessage, []byte(`{"type":`)))
	require.NoError(t, bob.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscribe"}`)))

	// Bob's message reaches Alice verbatim, attributed by the server.
	sendFrame(t, bob, models.ClientFrame{Type: models.FrameMessage, Content: "hello"})
	msg := readFrame(t, alice, models.FrameRoomMessage)
	assert.Equal(t, "bob", msg["username"])
	assert.Equal(t, "hello", msg["content"])
	assert.NotZero(t, msg["sentAt"])

	// The sender receives his own message too.
	msg = readFrame(t, bob, models.FrameRoomMessage)
	assert.Equal(t, "hello", msg["content"])

	// Alice disconnects; her seat frees up but her reservation survives.
	alice.Close()
	require.Eventually(t, func() bool {
		names := reg.MemberNames(creds.RoomID)
		return len(names) == 1 && names[0] == "bob"
	}, 2*time.Second, 10*time.Millisecond)

	// Bob is told Alice left.
	users = readFrame(t, bob, models.FrameRoomUsers)
	assert.Equal(t, []string{"bob"}, userList(users))

	// Alice reconnects under the same display name without consuming a new
	// slot; a fresh identity is still rejected.
	resp = postJSON(t, joinURL, models.JoinRoomRequest{Username: "alice", Password: "secret"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = postJSON(t, joinURL, models.JoinRoomRequest{Username: "carol", Password: "secret"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHistoryReplayOnConnect(t *testing.T) {
	srv, _ := newTestServer(t)
	creds := createRoom(t, srv, models.CreateRoomRequest{Username: "alice", Password: "secret", MaxUsers: 2})

	alice := dialWS(t, srv)
	connect(t, alice, creds)
	readFrame(t, alice, models.FrameRoomUsers)
	readFrame(t, alice, models.FrameRoomHistory)
	sendFrame(t, alice, models.ClientFrame{Type: models.FrameMessage, Content: "for the record"})
	readFrame(t, alice, models.FrameRoomMessage)

	// Bob joins later and gets the message replayed at handshake time.
	resp := postJSON(t, fmt.Sprintf("%s/api/rooms/%s/join", srv.URL, creds.RoomID), models.JoinRoomRequest{Username: "bob", Password: "secret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bobCreds models.RoomCredentials
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bobCreds))

	bob := dialWS(t, srv)
	connect(t, bob, bobCreds)
	readFrame(t, bob, models.FrameRoomUsers)
	history := readFrame(t, bob, models.FrameRoomHistory)
	messages := history["messages"].([]any)
	require.Len(t, messages, 1)
	replayed := messages[0].(map[string]any)
	assert.Equal(t, "alice", replayed["username"])
	assert.Equal(t, "for the record", replayed["content"])
}

func TestMessagesDoNotLeakAcrossRooms(t *testing.T) {
	srv, _ := newTestServer(t)
	first := createRoom(t, srv, models.CreateRoomRequest{Username: "alice", Password: "secret", MaxUsers: 2})
	second := createRoom(t, srv, models.CreateRoomRequest{Username: "eve", Password: "secret", MaxUsers: 2})

	alice := dialWS(t, srv)
	connect(t, alice, first)
	readFrame(t, alice, models.FrameRoomUsers)
	readFrame(t, alice, models.FrameRoomHistory)

	eve := dialWS(t, srv)
	connect(t, eve, second)
	readFrame(t, eve, models.FrameRoomUsers)
	readFrame(t, eve, models.FrameRoomHistory)

	sendFrame(t, alice, models.ClientFrame{Type: models.FrameMessage, Content: "private"})
	readFrame(t, alice, models.FrameRoomMessage)

	// Eve must not receive anything from the other room.
	require.NoError(t, eve.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := eve.ReadMessage()
	assert.Error(t, err, "expected a read timeout, not a leaked frame")
}

func TestHandshakeRejectsInvalidFirstFrame(t *testing.T) {
	srv, _ := newTestServer(t)
	creds := createRoom(t, srv, models.CreateRoomRequest{Username: "alice", Password: "secret", MaxUsers: 2})

	t.Run("chat frame before connect", func(t *testing.T) {
		conn := dialWS(t, srv)
		sendFrame(t, conn, models.ClientFrame{Type: models.FrameMessage, Content: "hi"})
		expectClosed(t, conn)
	})

	t.Run("malformed json", func(t *testing.T) {
		conn := dialWS(t, srv)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
		expectClosed(t, conn)
	})

	t.Run("stale binding", func(t *testing.T) {
		conn := dialWS(t, srv)
		sendFrame(t, conn, models.ClientFrame{Type: models.FrameConnect, RoomID: creds.RoomID, MemberID: "no-such-member"})
		expectClosed(t, conn)
	})

	t.Run("unknown room", func(t *testing.T) {
		conn := dialWS(t, srv)
		sendFrame(t, conn, models.ClientFrame{Type: models.FrameConnect, RoomID: "NOP-NOP-NOP", MemberID: creds.MemberID})
		expectClosed(t, conn)
	})

	t.Run("handshake timeout", func(t *testing.T) {
		conn := dialWS(t, srv)
		// Send nothing: the server gives up once the handshake deadline
		// passes.
		expectClosed(t, conn)
	})
}

func TestEmptyMessagesAreDropped(t *testing.T) {
	srv, _ := newTestServer(t)
	creds := createRoom(t, srv, models.CreateRoomRequest{Username: "alice", Password: "secret", MaxUsers: 2})

	alice := dialWS(t, srv)
	connect(t, alice, creds)
	readFrame(t, alice, models.FrameRoomUsers)
	readFrame(t, alice, models.FrameRoomHistory)

	sendFrame(t, alice, models.ClientFrame{Type: models.FrameMessage, Content: "   "})
	sendFrame(t, alice, models.ClientFrame{Type: models.FrameMessage, Content: "  real  "})

	msg := readFrame(t, alice, models.FrameRoomMessage)
	assert.Equal(t, "real", msg["content"], "blank message skipped, content trimmed")
}

// stale bindings after a disconnect must not pass the handshake again
func TestReconnectWithOldMemberIDFails(t *testing.T) {
	srv, reg := newTestServer(t)
	creds := createRoom(t, srv, models.CreateRoomRequest{Username: "alice", Password: "secret", MaxUsers: 2})

	alice := dialWS(t, srv)
	connect(t, alice, creds)
	readFrame(t, alice, models.FrameRoomUsers)
	readFrame(t, alice, models.FrameRoomHistory)
	alice.Close()

	require.Eventually(t, func() bool {
		return len(reg.MemberNames(creds.RoomID)) == 0
	}, 2*time.Second, 10*time.Millisecond)

	retry := dialWS(t, srv)
	connect(t, retry, creds)
	expectClosed(t, retry)
}
