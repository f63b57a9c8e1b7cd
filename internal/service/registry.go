package service

import (
	"sync"

	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/model"
)

// PlaybackState is the ephemeral last-writer-wins description of what a room
// is playing. It lives only in the registry and is never persisted.
type PlaybackState struct {
	Action  model.PlaybackAction
	Time    float64
	TrackID string
}

// RoomState is a room's ephemeral state, guarded by the room's own lock.
type RoomState struct {
	Playback *PlaybackState
}

type roomEntry struct {
	mu    sync.Mutex
	state RoomState
}

// SessionRegistry holds per-room ephemeral state. Each room has its own lock
// so operations on different rooms never contend; the outer lock only guards
// the map itself. Constructor-injected everywhere — no package-level instance.
type SessionRegistry struct {
	mu    sync.Mutex
	rooms map[string]*roomEntry
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{rooms: make(map[string]*roomEntry)}
}

func (r *SessionRegistry) entry(roomID string) *roomEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rooms[roomID]
	if !ok {
		e = &roomEntry{}
		r.rooms[roomID] = e
	}
	return e
}

// Apply runs fn with exclusive access to the room's ephemeral state. Accepted
// playback mutations and their broadcast enqueue run inside fn, which keeps
// per-room application order equal to arrival order.
func (r *SessionRegistry) Apply(roomID string, fn func(state *RoomState)) {
	e := r.entry(roomID)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.state)
}

// Playback returns a copy of the room's playback state, if any.
func (r *SessionRegistry) Playback(roomID string) (PlaybackState, bool) {
	r.mu.Lock()
	e, ok := r.rooms[roomID]
	r.mu.Unlock()
	if !ok {
		return PlaybackState{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Playback == nil {
		return PlaybackState{}, false
	}
	return *e.state.Playback, true
}

// ClearPlayback deletes the room's playback state (host disconnect).
func (r *SessionRegistry) ClearPlayback(roomID string) {
	r.mu.Lock()
	e, ok := r.rooms[roomID]
	r.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.state.Playback = nil
	e.mu.Unlock()
}

// DropRoom removes the room's entry entirely (room closed).
func (r *SessionRegistry) DropRoom(roomID string) {
	r.mu.Lock()
	delete(r.rooms, roomID)
	r.mu.Unlock()
}
