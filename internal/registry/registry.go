// Package registry owns all room state: creation, capacity enforcement,
// membership, identity reservation and idle-room expiry. It is the only
// writer of room entities; everything else reads through its accessors.
package registry

import (
	"crypto/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"chat-relay/internal/digest"
	"chat-relay/internal/models"

	"github.com/google/uuid"
)

const (
	minPasswordLen = 5
	minRoomSize    = 2
	maxRoomSize    = 6
)

const roomIDCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Registry guards the room map behind a single mutex. Every operation is a
// short run-to-completion critical section, so a join's capacity check and
// reservation write can never interleave with another join on the same room.
type Registry struct {
	mu      sync.Mutex
	rooms   map[string]*models.Room
	idleTTL time.Duration
}

func New(idleTTL time.Duration) *Registry {
	return &Registry{
		rooms:   make(map[string]*models.Room),
		idleTTL: idleTTL,
	}
}

// Create validates the request, allocates a fresh room and seeds the creator
// as its first member. Returns the room ID and the creator's member ID.
func (r *Registry) Create(username, password string, hidden bool, maxUsers int) (string, string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", "", &ValidationError{Reason: "username required"}
	}
	if len(digest.Normalize(password)) < minPasswordLen {
		return "", "", &ValidationError{Reason: "password min 5 chars"}
	}
	if maxUsers < minRoomSize || maxUsers > maxRoomSize {
		return "", "", &ValidationError{Reason: "maxUsers must be between 2 and 6"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	roomID := generateRoomID()
	for {
		if _, taken := r.rooms[roomID]; !taken {
			break
		}
		roomID = generateRoomID()
	}
	memberID := uuid.NewString()

	r.rooms[roomID] = &models.Room{
		ID:             roomID,
		Public:         !hidden,
		MaxUsers:       maxUsers,
		PasswordDigest: digest.Hash(digest.Normalize(password)),
		Members:        map[string]string{memberID: username},
		Reserved:       map[string]struct{}{digest.Hash(digest.Normalize(username)): {}},
	}
	return roomID, memberID, nil
}

// Join admits username into the room if a capacity slot is available or the
// name already holds a reservation. The check order is fixed: not-found,
// validation, reservation/capacity, name collision, password. Capacity is
// checked before the password so a client cannot probe password validity for
// a full room. A reservation claimed here persists even if a later check
// fails.
func (r *Registry) Join(roomID, username, password string) (string, error) {
	username = strings.TrimSpace(username)

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return "", ErrRoomNotFound
	}
	if username == "" {
		return "", &ValidationError{Reason: "username required"}
	}
	if len(digest.Normalize(password)) < minPasswordLen {
		return "", &ValidationError{Reason: "password min 5 chars"}
	}

	idDigest := digest.Hash(digest.Normalize(username))
	if _, reserved := room.Reserved[idDigest]; !reserved {
		if len(room.Reserved) >= room.MaxUsers {
			return "", ErrRoomFull
		}
		room.Reserved[idDigest] = struct{}{}
	}

	for _, name := range room.Members {
		if name == username {
			return "", ErrNameTaken
		}
	}

	if digest.Hash(digest.Normalize(password)) != room.PasswordDigest {
		return "", ErrInvalidPassword
	}

	memberID := uuid.NewString()
	room.Members[memberID] = username
	room.ExpiresAt = time.Time{}
	return memberID, nil
}

// Leave removes the member and arms the idle-expiry timer when the room
// empties. Idempotent for unknown rooms and members.
func (r *Registry) Leave(roomID, memberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return
	}
	if _, ok := room.Members[memberID]; !ok {
		return
	}
	delete(room.Members, memberID)
	if len(room.Members) == 0 {
		room.ExpiresAt = time.Now().Add(r.idleTTL)
	}
}

// ListPublic returns directory summaries for the public rooms. TTL is nil
// for occupied rooms, else the remaining grace period clamped at zero.
func (r *Registry) ListPublic(now time.Time) []models.RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	summaries := make([]models.RoomSummary, 0, len(r.rooms))
	for _, room := range r.rooms {
		if !room.Public {
			continue
		}
		var ttl *int64
		if !room.ExpiresAt.IsZero() {
			ms := room.ExpiresAt.Sub(now).Milliseconds()
			if ms < 0 {
				ms = 0
			}
			ttl = &ms
		}
		summaries = append(summaries, models.RoomSummary{
			ID:          room.ID,
			MemberCount: len(room.Members),
			MaxUsers:    room.MaxUsers,
			TTL:         ttl,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries
}

// EvictExpired removes every room whose expiry has elapsed and returns the
// IDs of the evicted public rooms so the caller can refresh directory
// listeners.
func (r *Registry) EvictExpired(now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evictedPublic []string
	for id, room := range r.rooms {
		if room.ExpiresAt.IsZero() || !room.ExpiresAt.Before(now) {
			continue
		}
		delete(r.rooms, id)
		if room.Public {
			evictedPublic = append(evictedPublic, id)
		}
	}
	return evictedPublic
}

// MemberName resolves a live (roomID, memberID) binding to its display name.
func (r *Registry) MemberName(roomID, memberID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return "", false
	}
	name, ok := room.Members[memberID]
	return name, ok
}

// MemberNames returns the display names of the room's live members, sorted
// for stable snapshots. Empty for unknown rooms.
func (r *Registry) MemberNames(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(room.Members))
	for _, name := range room.Members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// generateRoomID builds a human-typable identifier of three dash-separated
// 3-character segments, e.g. "A1B-C2D-E3F". Uniqueness is enforced by the
// caller under the registry lock.
func generateRoomID() string {
	buf := make([]byte, 9)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	id := make([]byte, 0, 11)
	for i, b := range buf {
		if i > 0 && i%3 == 0 {
			id = append(id, '-')
		}
		id = append(id, roomIDCharset[int(b)%len(roomIDCharset)])
	}
	return string(id)
}
