// Package cleanup runs the periodic sweeps that evict expired empty rooms
// and prune stale chat messages.
package cleanup

import (
	"context"
	"time"

	"chat-relay/internal/history"
	"chat-relay/internal/models"
	"chat-relay/internal/registry"
	ws "chat-relay/internal/websocket"
	"chat-relay/pkg/logger"
)

type Sweeper struct {
	registry *registry.Registry
	history  *history.Store
	hub      *ws.Hub
	interval time.Duration
}

func NewSweeper(reg *registry.Registry, hist *history.Store, hub *ws.Hub, interval time.Duration) *Sweeper {
	return &Sweeper{
		registry: reg,
		history:  hist,
		hub:      hub,
		interval: interval,
	}
}

// Run ticks until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(time.Now())
		}
	}
}

// Sweep runs one room pass and one message pass. When any public room was
// evicted, every live connection gets one refreshed directory listing.
func (s *Sweeper) Sweep(now time.Time) {
	if evicted := s.registry.EvictExpired(now); len(evicted) > 0 {
		logger.Debug("Evicted expired public rooms: %v", evicted)
		s.hub.BroadcastToAll(models.NewRoomsListFrame(s.registry.ListPublic(now)))
	}
	s.history.PruneExpired(now)
}
