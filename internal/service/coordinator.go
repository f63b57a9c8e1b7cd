package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/errs"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/model"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/store"
	"go.uber.org/zap"
)

// Wire messages for rejected actions. The playback one is part of the client
// contract, so the exact wording matters.
const (
	msgNotHost          = "Only the host can control playback"
	msgIdentityMismatch = "event does not match this connection's participant"
	msgInvalidPayload   = "invalid event payload"
)

// RoomCoordinator processes a connection's jam events: identity checks,
// host-authority enforcement, membership persistence, and broadcast
// triggering. One instance serves all connections; per-room exclusion lives
// in the registry.
type RoomCoordinator struct {
	store    store.MembershipStore
	registry *SessionRegistry
	hub      *JamHub
	log      *zap.Logger
}

// NewRoomCoordinator creates the coordinator.
func NewRoomCoordinator(st store.MembershipStore, registry *SessionRegistry, hub *JamHub, log *zap.Logger) *RoomCoordinator {
	return &RoomCoordinator{store: st, registry: registry, hub: hub, log: log}
}

// Admit pushes the initial room snapshot to a freshly registered session and
// tells the rest of the room about the newcomer with a fresh snapshot of its
// own. The cached playback state, if any, goes to this session alone.
func (c *RoomCoordinator) Admit(s *Session) error {
	parts, err := c.store.FindActiveParticipants(s.RoomID)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	snapshot := model.SnapshotPayload{Participants: participantViews(parts)}
	c.hub.SendTo(s, model.EventRoomState, snapshot)
	c.hub.Broadcast(s.RoomID, model.EventParticipantsUpdate, snapshot)
	if pb, ok := c.registry.Playback(s.RoomID); ok {
		c.hub.SendTo(s, model.EventPlaybackControl, model.PlaybackControlPayload{
			Action:  pb.Action,
			Time:    pb.Time,
			TrackID: pb.TrackID,
		})
	}
	return nil
}

// HandleMessage decodes one inbound frame and dispatches it. Failures are
// answered with an error event to this session only; they never tear the
// connection down.
func (c *RoomCoordinator) HandleMessage(s *Session, raw []byte) {
	var env model.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.sendError(s, msgInvalidPayload)
		return
	}
	switch env.Event {
	case model.EventParticipantUpdate:
		var p model.ParticipantUpdatePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.sendError(s, msgInvalidPayload)
			return
		}
		c.handleParticipantUpdate(s, p)
	case model.EventParticipantReady:
		var p model.ParticipantReadyPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.sendError(s, msgInvalidPayload)
			return
		}
		c.handleParticipantReady(s, p)
	case model.EventPlaybackControl:
		var p model.PlaybackControlPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.sendError(s, msgInvalidPayload)
			return
		}
		c.handlePlaybackControl(s, p)
	case model.EventJamReaction:
		var p model.ReactionPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.sendError(s, msgInvalidPayload)
			return
		}
		c.handleReaction(s, p)
	default:
		c.sendError(s, "unknown event: "+env.Event)
	}
}

// boundTo checks that a payload's declared identity, when present, matches
// the connection binding. A connection only ever speaks for its own
// participant row.
func (c *RoomCoordinator) boundTo(s *Session, userID, roomID string) bool {
	if userID != "" && userID != s.UserID {
		return false
	}
	if roomID != "" && roomID != s.RoomID {
		return false
	}
	return true
}

func (c *RoomCoordinator) handleParticipantUpdate(s *Session, p model.ParticipantUpdatePayload) {
	if !c.boundTo(s, p.UserID, p.RoomID) {
		c.rejectIdentity(s, model.EventParticipantUpdate)
		return
	}
	now := time.Now()
	err := c.store.UpdateParticipant(s.RoomID, s.UserID, store.ParticipantUpdate{
		Instrument:   &p.Instrument,
		LastActiveAt: &now,
	})
	if err != nil {
		c.log.Error("persist instrument",
			zap.String("room_id", s.RoomID),
			zap.String("user_id", s.UserID),
			zap.Error(err))
		c.sendError(s, "failed to update participant")
		return
	}
	c.broadcastSnapshot(s.RoomID)
}

func (c *RoomCoordinator) handleParticipantReady(s *Session, p model.ParticipantReadyPayload) {
	if !c.boundTo(s, p.UserID, p.RoomID) {
		c.rejectIdentity(s, model.EventParticipantReady)
		return
	}
	now := time.Now()
	err := c.store.UpdateParticipant(s.RoomID, s.UserID, store.ParticipantUpdate{
		Ready:        &p.Ready,
		LastActiveAt: &now,
	})
	if err != nil {
		c.log.Error("persist readiness",
			zap.String("room_id", s.RoomID),
			zap.String("user_id", s.UserID),
			zap.Error(err))
		c.sendError(s, "failed to update readiness")
		return
	}
	c.broadcastSnapshot(s.RoomID)
}

// handlePlaybackControl enforces host authority. The host is re-resolved
// from the store on every event, never cached on the connection, so a future
// host transfer can't be bypassed by a stale in-memory flag.
func (c *RoomCoordinator) handlePlaybackControl(s *Session, p model.PlaybackControlPayload) {
	if !c.boundTo(s, p.UserID, p.RoomID) {
		c.rejectIdentity(s, model.EventPlaybackControl)
		return
	}
	if !p.Action.Valid() {
		c.sendError(s, "unknown playback action: "+string(p.Action))
		return
	}
	room, err := c.store.FindRoom(s.RoomID)
	if err != nil {
		c.sendError(s, errs.ErrRoomNotFound.Error())
		return
	}
	if room.CreatorID != s.UserID {
		c.log.Info("playback control rejected",
			zap.String("room_id", s.RoomID),
			zap.String("user_id", s.UserID))
		c.sendError(s, msgNotHost)
		return
	}
	hostRow, err := c.store.FindParticipant(s.RoomID, s.UserID)
	if err != nil || hostRow.Status != model.ParticipantActive {
		c.sendError(s, msgNotHost)
		return
	}

	// Replace the state wholesale and enqueue the broadcast inside the
	// per-room critical section: accepted events apply and fan out in
	// arrival order. The sender gets the echo too.
	c.registry.Apply(s.RoomID, func(state *RoomState) {
		state.Playback = &PlaybackState{Action: p.Action, Time: p.Time, TrackID: p.TrackID}
		c.hub.Broadcast(s.RoomID, model.EventPlaybackControl, model.PlaybackControlPayload{
			Action:  p.Action,
			Time:    p.Time,
			TrackID: p.TrackID,
		})
	})
}

// handleReaction broadcasts a fire-and-forget reaction with the sender's
// display name. Nothing is persisted, no authority check.
func (c *RoomCoordinator) handleReaction(s *Session, p model.ReactionPayload) {
	if p.Type == "" {
		c.sendError(s, msgInvalidPayload)
		return
	}
	c.hub.Broadcast(s.RoomID, model.EventJamReaction, model.ReactionBroadcast{
		Type:     p.Type,
		Username: s.Username,
	})
}

// Disconnect handles transport closure: participant goes inactive with
// readiness cleared, the host's departure wipes the room's playback state,
// and the remaining sessions get a fresh snapshot plus a left-notice.
// Idempotent per session.
func (c *RoomCoordinator) Disconnect(s *Session) {
	s.Leave(func() {
		now := time.Now()
		inactive := model.ParticipantInactive
		notReady := false
		err := c.store.UpdateParticipant(s.RoomID, s.UserID, store.ParticipantUpdate{
			Status:       &inactive,
			Ready:        &notReady,
			LastActiveAt: &now,
		})
		if err != nil {
			c.log.Error("persist disconnect",
				zap.String("room_id", s.RoomID),
				zap.String("user_id", s.UserID),
				zap.Error(err))
		}

		room, err := c.store.FindRoom(s.RoomID)
		if err == nil && room.CreatorID == s.UserID {
			// Host left: reconnect starts from a clean slate.
			c.registry.ClearPlayback(s.RoomID)
		}

		c.broadcastSnapshot(s.RoomID)
		c.hub.Broadcast(s.RoomID, model.EventParticipantLeft, model.ParticipantLeftPayload{
			UserID: s.UserID,
		})
	})
}

func (c *RoomCoordinator) broadcastSnapshot(roomID string) {
	parts, err := c.store.FindActiveParticipants(roomID)
	if err != nil {
		c.log.Error("load snapshot", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	c.hub.Broadcast(roomID, model.EventParticipantsUpdate, model.SnapshotPayload{
		Participants: participantViews(parts),
	})
}

func (c *RoomCoordinator) rejectIdentity(s *Session, event string) {
	c.log.Warn("identity mismatch",
		zap.String("room_id", s.RoomID),
		zap.String("user_id", s.UserID),
		zap.String("event", event))
	c.sendError(s, msgIdentityMismatch)
}

func (c *RoomCoordinator) sendError(s *Session, msg string) {
	c.hub.SendTo(s, model.EventError, model.ErrorPayload{Message: msg})
}
