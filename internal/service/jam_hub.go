package service

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/model"
	"go.uber.org/zap"
)

// Session represents a live WebSocket connection bound to one participant.
// The binding (RoomID, UserID) is fixed at admission and is the only identity
// events on this connection may act as.
type Session struct {
	RoomID   string
	UserID   string
	Username string
	Conn     *websocket.Conn
	Send     chan []byte

	leaveOnce sync.Once
}

// Leave runs fn at most once per session, making disconnect idempotent.
func (s *Session) Leave(fn func()) {
	s.leaveOnce.Do(fn)
}

// JamHub manages WebSocket connections and fans out jam events per room.
type JamHub struct {
	mu         sync.RWMutex
	rooms      map[string]map[*Session]struct{} // roomID -> set of sessions
	upgrader   websocket.Upgrader
	maxMsgSize int64
	log        *zap.Logger
}

// NewJamHub creates a new hub.
func NewJamHub(readBufferSize, writeBufferSize int, maxMessageSize int64, log *zap.Logger) *JamHub {
	return &JamHub{
		rooms:      make(map[string]map[*Session]struct{}),
		maxMsgSize: maxMessageSize,
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			// Allow all origins for dev; in prod set CheckOrigin.
		},
	}
}

// Register adds a session to a room's broadcast group and returns a cleanup
// function. Cleanup is safe to call after CloseRoom already removed the room.
func (h *JamHub) Register(roomID string, user model.ParticipantView, conn *websocket.Conn) (*Session, func()) {
	if h.maxMsgSize > 0 && conn != nil {
		conn.SetReadLimit(h.maxMsgSize)
	}
	s := &Session{
		RoomID:   roomID,
		UserID:   user.UserID,
		Username: user.Username,
		Conn:     conn,
		Send:     make(chan []byte, 64),
	}
	h.mu.Lock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Session]struct{})
	}
	h.rooms[roomID][s] = struct{}{}
	h.mu.Unlock()

	h.log.Info("session joined room",
		zap.String("room_id", roomID),
		zap.String("user_id", s.UserID),
		zap.String("role", user.Role))

	cleanup := func() {
		h.unregister(roomID, s)
	}
	return s, cleanup
}

func (h *JamHub) unregister(roomID string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.rooms[roomID]
	if !ok {
		return
	}
	if _, ok := m[s]; !ok {
		return
	}
	delete(m, s)
	if len(m) == 0 {
		delete(h.rooms, roomID)
	}
	close(s.Send)
	h.log.Info("session left room",
		zap.String("room_id", roomID),
		zap.String("user_id", s.UserID))
}

// Broadcast sends an event to every session in the room, including the
// sender. Delivery is best-effort: a session whose buffer is full is skipped.
func (h *JamHub) Broadcast(roomID string, event string, payload interface{}) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		h.log.Error("encode broadcast", zap.String("event", event), zap.Error(err))
		return
	}
	// Enqueue under the read lock: sends are non-blocking, and unregister
	// closes Send under the write lock, so no send can hit a closed channel.
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.rooms[roomID] {
		select {
		case s.Send <- data:
		default:
			h.log.Warn("session send buffer full",
				zap.String("room_id", roomID),
				zap.String("user_id", s.UserID))
		}
	}
}

// SendTo delivers an event to one session only (snapshots at admission,
// error notifications).
func (h *JamHub) SendTo(s *Session, event string, payload interface{}) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		h.log.Error("encode event", zap.String("event", event), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.rooms[s.RoomID][s]; !ok {
		return
	}
	select {
	case s.Send <- data:
	default:
		h.log.Warn("session send buffer full",
			zap.String("room_id", s.RoomID),
			zap.String("user_id", s.UserID))
	}
}

// CloseRoom announces the close to every session in the room, then removes
// and closes them all.
func (h *JamHub) CloseRoom(roomID string) {
	h.mu.Lock()
	m, ok := h.rooms[roomID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.rooms, roomID)
	h.mu.Unlock()

	// The notice goes through Send so it never races the write pump; closing
	// the channel lets the pump drain it and then close the connection.
	raw, _ := encodeEvent(model.EventRoomClosed, model.RoomClosedPayload{RoomID: roomID})
	for s := range m {
		select {
		case s.Send <- raw:
		default:
		}
		close(s.Send)
	}
	h.log.Info("room closed", zap.String("room_id", roomID))
}

// Upgrader returns the WebSocket upgrader for HTTP handlers.
func (h *JamHub) Upgrader() *websocket.Upgrader {
	return &h.upgrader
}

// SessionCount returns the number of live sessions in a room (for debugging).
func (h *JamHub) SessionCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func encodeEvent(event string, payload interface{}) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = raw
	}
	return json.Marshal(model.Envelope{Event: event, Data: data})
}
