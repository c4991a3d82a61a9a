package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chat-relay/internal/models"
	"chat-relay/internal/registry"
	ws "chat-relay/internal/websocket"
	"chat-relay/pkg/logger"
)

type RoomHandlers struct {
	registry *registry.Registry
	hub      *ws.Hub
}

func NewRoomHandlers(reg *registry.Registry, hub *ws.Hub) *RoomHandlers {
	return &RoomHandlers{
		registry: reg,
		hub:      hub,
	}
}

func (h *RoomHandlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.registry.ListPublic(time.Now()))
}

func (h *RoomHandlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request")
		return
	}

	roomID, memberID, err := h.registry.Create(req.Username, req.Password, req.Hidden, req.MaxUsers)
	if err != nil {
		logger.Error("Create room error: %v", err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.RoomCredentials{RoomID: roomID, MemberID: memberID})

	// New public rooms show up in everyone's directory right away.
	if !req.Hidden {
		h.hub.BroadcastToAll(models.NewRoomsListFrame(h.registry.ListPublic(time.Now())))
	}
}

func (h *RoomHandlers) JoinRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomIDFromPath(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid path")
		return
	}

	var req models.JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request")
		return
	}

	memberID, err := h.registry.Join(roomID, req.Username, req.Password)
	if err != nil {
		logger.Error("Join room error: %v", err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.RoomCredentials{RoomID: roomID, MemberID: memberID})

	// Connected members see the updated roster before the joiner's websocket
	// handshake lands.
	h.hub.BroadcastToRoom(roomID, models.NewUsersFrame(h.registry.MemberNames(roomID)))
}

// roomIDFromPath extracts {id} from /api/rooms/{id}/join.
func roomIDFromPath(r *http.Request) (string, error) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 4 || parts[3] == "" {
		return "", fmt.Errorf("invalid path")
	}
	return parts[3], nil
}

// writeError maps the registry error taxonomy to HTTP statuses. Capacity and
// password failures share 403 but carry distinct messages; name collisions
// get 409 so clients can prompt for another name.
func writeError(w http.ResponseWriter, err error) {
	var validationErr *registry.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeJSONError(w, http.StatusBadRequest, validationErr.Reason)
	case errors.Is(err, registry.ErrRoomNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, registry.ErrRoomFull), errors.Is(err, registry.ErrInvalidPassword):
		writeJSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, registry.ErrNameTaken):
		writeJSONError(w, http.StatusConflict, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
