package model

import "time"

// RoomStatus represents room lifecycle state.
type RoomStatus string

const (
	RoomStatusActive RoomStatus = "active"
	RoomStatusClosed RoomStatus = "closed"
)

// Participant roles and statuses.
const (
	RoleHost        = "host"
	RoleParticipant = "participant"

	ParticipantActive   = "active"
	ParticipantInactive = "inactive"
)

// Bounds on a room's configurable participant limit.
const (
	MinRoomCapacity     = 2
	MaxRoomCapacity     = 50
	DefaultRoomCapacity = 10
)

// RoomView is the API view of a room (not GORM entity).
type RoomView struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	MaxParticipants int               `json:"max_participants"`
	Status          RoomStatus        `json:"status"`
	CreatorID       string            `json:"creator_id"`
	Participants    []ParticipantView `json:"participants"`
	CreatedAt       time.Time         `json:"created_at"`
	ClosedAt        *time.Time        `json:"closed_at,omitempty"`
}

// ParticipantView is a participant in API responses and snapshot broadcasts.
type ParticipantView struct {
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	Instrument   string    `json:"instrument,omitempty"`
	Ready        bool      `json:"ready"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}

// ParticipantViewOf maps the GORM entity to its API view.
func ParticipantViewOf(p *RoomParticipant) ParticipantView {
	return ParticipantView{
		UserID:       p.UserID,
		Username:     p.Username,
		Role:         p.Role,
		Instrument:   p.Instrument,
		Ready:        p.Ready,
		LastActiveAt: p.LastActiveAt,
	}
}

// CreateRoomRequest is the request body for POST /rooms.
type CreateRoomRequest struct {
	Name            string `json:"name" binding:"required"`
	Description     string `json:"description"`
	MaxParticipants int    `json:"max_participants"`
}

// UpdateParticipantRequest is the request body for PATCH /rooms/:id/participant.
// Nil fields are left untouched.
type UpdateParticipantRequest struct {
	Instrument *string `json:"instrument"`
	Ready      *bool   `json:"ready"`
}
