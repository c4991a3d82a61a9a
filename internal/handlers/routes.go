package handlers

import (
	"net/http"
	"strings"
)

// SetupRoutes registers the REST and websocket endpoints on the mux.
func SetupRoutes(mux *http.ServeMux, roomHandlers *RoomHandlers, wsHandlers *WebSocketHandlers) {
	// Room directory and creation
	mux.HandleFunc("/api/rooms", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/rooms" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		switch r.Method {
		case http.MethodGet:
			roomHandlers.ListRooms(w, r)
		case http.MethodPost:
			roomHandlers.CreateRoom(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Room sub-routes
	mux.HandleFunc("/api/rooms/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		if len(parts) < 4 || parts[3] == "" {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}

		// /api/rooms/{id}/join
		if len(parts) == 5 && parts[4] == "join" && r.Method == http.MethodPost {
			roomHandlers.JoinRoom(w, r)
			return
		}

		http.Error(w, "endpoint not found", http.StatusNotFound)
	})

	// WebSocket route
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)
}
