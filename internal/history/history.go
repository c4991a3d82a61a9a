// Package history keeps the short-lived append-only log of chat messages
// used to replay recent traffic to newly connected members.
package history

import (
	"sync"
	"time"

	"chat-relay/internal/models"
)

// Store retains messages for a fixed window. Appends come from the broadcast
// path; pruning is done only by the cleanup sweeper.
type Store struct {
	mu        sync.Mutex
	messages  []models.Message
	retention time.Duration
}

func NewStore(retention time.Duration) *Store {
	return &Store{retention: retention}
}

func (s *Store) Append(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// HistoryFor returns the room's messages still inside the retention window,
// ordered by send time ascending.
func (s *Store) HistoryFor(roomID string, now time.Time) []models.Message {
	cutoff := now.Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	var recent []models.Message
	for _, msg := range s.messages {
		if msg.RoomID == roomID && !msg.SentAt.Before(cutoff) {
			recent = append(recent, msg)
		}
	}
	return recent
}

// PruneExpired drops every message older than the retention window.
func (s *Store) PruneExpired(now time.Time) {
	cutoff := now.Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.messages[:0]
	for _, msg := range s.messages {
		if !msg.SentAt.Before(cutoff) {
			kept = append(kept, msg)
		}
	}
	s.messages = kept
}
