package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-relay/internal/cleanup"
	"chat-relay/internal/config"
	"chat-relay/internal/handlers"
	"chat-relay/internal/history"
	"chat-relay/internal/registry"
	"chat-relay/internal/websocket"
	"chat-relay/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize core state. Everything is in-memory: a restart loses all
	// rooms and history.
	reg := registry.New(cfg.Rooms.IdleTTL)
	hist := history.NewStore(cfg.History.Retention)

	// Initialize the broadcast hub
	hub := websocket.NewHub()
	go hub.Run()

	// Initialize the periodic sweeps
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sweeper := cleanup.NewSweeper(reg, hist, hub, cfg.Cleanup.SweepInterval)
	go sweeper.Run(ctx)

	// Initialize handlers
	roomHandlers := handlers.NewRoomHandlers(reg, hub)
	wsHandlers := handlers.NewWebSocketHandlers(reg, hist, hub, cfg.Rooms.HandshakeTimeout)

	// Setup routes
	mux := http.NewServeMux()
	handlers.SetupRoutes(mux, roomHandlers, wsHandlers)
	mountStatic(mux, cfg.Server.StaticDir)

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	logger.Info("🚀 Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("📡 WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)
	printAPIEndpoints()

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error: %v", err)
	}
	cancel()
	hub.Shutdown()
}

// mountStatic serves front-end assets when a static directory is present.
func mountStatic(mux *http.ServeMux, staticDir string) {
	if info, err := os.Stat(staticDir); err == nil && info.IsDir() {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func printAPIEndpoints() {
	logger.Info("🔗 API endpoints:")
	logger.Info("   GET  /api/rooms")
	logger.Info("   POST /api/rooms")
	logger.Info("   POST /api/rooms/{id}/join")
}
