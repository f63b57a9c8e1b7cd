package store

import (
	"time"

	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/model"
)

// UserRef identifies the user behind a request or connection.
type UserRef struct {
	ID       string
	Username string
}

// ParticipantUpdate lists the fields an update may touch; nil means untouched.
type ParticipantUpdate struct {
	Instrument   *string
	Ready        *bool
	Status       *string
	LastActiveAt *time.Time
}

// MembershipStore is the durable record of rooms and their participants.
// The session registry never writes here; the coordinator and the room
// lifecycle handlers do. Kept as an interface so coordinator tests can fake
// persistence without a database.
type MembershipStore interface {
	// CreateRoom persists the room and its host participant row in one
	// transaction; the creator is the host.
	CreateRoom(creator UserRef, name, description string, maxParticipants int) (*model.Room, error)

	// FindRoom returns the room or errs.ErrRoomNotFound.
	FindRoom(roomID string) (*model.Room, error)

	// FindActiveRooms returns all active rooms with their active participants
	// preloaded.
	FindActiveRooms() ([]model.Room, error)

	// FindActiveParticipants returns the active participants of a room.
	FindActiveParticipants(roomID string) ([]model.RoomParticipant, error)

	// FindParticipant returns the (room, user) row regardless of status, or
	// errs.ErrParticipantNotFound.
	FindParticipant(roomID, userID string) (*model.RoomParticipant, error)

	// CreateOrReactivateParticipant creates the (room, user) row as an active
	// participant with readiness false, or reactivates an existing row with
	// readiness reset and last-active refreshed.
	CreateOrReactivateParticipant(roomID string, user UserRef) (*model.RoomParticipant, error)

	// UpdateParticipant applies the non-nil fields to the (room, user) row.
	UpdateParticipant(roomID, userID string, fields ParticipantUpdate) error

	// CloseRoom marks the room closed and all its participants inactive.
	// Returns errs.ErrForbidden unless requestingUserID is the creator.
	CloseRoom(roomID, requestingUserID string) error
}
