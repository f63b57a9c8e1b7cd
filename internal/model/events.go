package model

import "encoding/json"

// Event names on the jam WebSocket channel.
const (
	// inbound (client → server)
	EventParticipantUpdate = "participant:update"
	EventParticipantReady  = "participant:ready"
	EventPlaybackControl   = "playback:control" // also outbound: echo of accepted state
	EventJamReaction       = "jam:reaction"     // also outbound, with username attached

	// outbound (server → client)
	EventParticipantsUpdate = "participants:update"
	EventRoomState          = "room:state" // admission snapshot, same payload as participants:update
	EventParticipantLeft    = "participant:left"
	EventRoomClosed         = "room:closed"
	EventError              = "error"
)

// Envelope is the wire frame: {"event": "...", "data": {...}}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// PlaybackAction enumerates host playback commands.
type PlaybackAction string

const (
	PlaybackPlay        PlaybackAction = "play"
	PlaybackPause       PlaybackAction = "pause"
	PlaybackSeek        PlaybackAction = "seek"
	PlaybackTrackChange PlaybackAction = "track-change"
)

// Valid reports whether a is a known playback action.
func (a PlaybackAction) Valid() bool {
	switch a {
	case PlaybackPlay, PlaybackPause, PlaybackSeek, PlaybackTrackChange:
		return true
	}
	return false
}

// ParticipantUpdatePayload carries an instrument change. UserID/RoomID, when
// present, must match the connection's binding.
type ParticipantUpdatePayload struct {
	UserID     string `json:"userId,omitempty"`
	RoomID     string `json:"roomId,omitempty"`
	Instrument string `json:"instrument"`
}

// ParticipantReadyPayload carries a readiness toggle.
type ParticipantReadyPayload struct {
	UserID string `json:"userId,omitempty"`
	RoomID string `json:"roomId,omitempty"`
	Ready  bool   `json:"ready"`
}

// PlaybackControlPayload is both the inbound host command and the outbound echo.
type PlaybackControlPayload struct {
	UserID  string         `json:"userId,omitempty"`
	RoomID  string         `json:"roomId,omitempty"`
	Action  PlaybackAction `json:"action"`
	Time    float64        `json:"time,omitempty"`
	TrackID string         `json:"trackId,omitempty"`
}

// ReactionPayload is the inbound fire-and-forget reaction.
type ReactionPayload struct {
	Type string `json:"type"`
}

// ReactionBroadcast is the outbound reaction with the sender's display name.
type ReactionBroadcast struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

// SnapshotPayload is the full-room participant listing sent on every change.
type SnapshotPayload struct {
	Participants []ParticipantView `json:"participants"`
}

// ParticipantLeftPayload announces a disconnect.
type ParticipantLeftPayload struct {
	UserID string `json:"userId"`
}

// RoomClosedPayload announces the host closing the room.
type RoomClosedPayload struct {
	RoomID string `json:"roomId"`
}

// ErrorPayload is a non-fatal error delivered to a single connection.
type ErrorPayload struct {
	Message string `json:"message"`
}
