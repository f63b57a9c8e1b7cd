package service

import (
	"time"

	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/errs"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/model"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/store"
	"go.uber.org/zap"
)

// RoomService manages room lifecycle: create, list, fetch, close. These are
// plain request/response operations; the realtime path lives in the
// coordinator.
type RoomService struct {
	store    store.MembershipStore
	registry *SessionRegistry
	hub      *JamHub
	log      *zap.Logger
}

// NewRoomService creates a room service.
func NewRoomService(st store.MembershipStore, registry *SessionRegistry, hub *JamHub, log *zap.Logger) *RoomService {
	return &RoomService{store: st, registry: registry, hub: hub, log: log}
}

// Create persists a room with its host participant. The creator is the host.
func (s *RoomService) Create(creator store.UserRef, req model.CreateRoomRequest) (*model.RoomView, error) {
	capacity := req.MaxParticipants
	if capacity == 0 {
		capacity = model.DefaultRoomCapacity
	}
	if capacity < model.MinRoomCapacity {
		capacity = model.MinRoomCapacity
	}
	if capacity > model.MaxRoomCapacity {
		capacity = model.MaxRoomCapacity
	}
	room, err := s.store.CreateRoom(creator, req.Name, req.Description, capacity)
	if err != nil {
		return nil, err
	}
	s.log.Info("room created",
		zap.String("room_id", room.ID),
		zap.String("creator_id", creator.ID))
	return roomView(room, room.Participants), nil
}

// ListActive returns all active rooms with their active participants.
func (s *RoomService) ListActive() ([]model.RoomView, error) {
	rooms, err := s.store.FindActiveRooms()
	if err != nil {
		return nil, err
	}
	views := make([]model.RoomView, 0, len(rooms))
	for i := range rooms {
		views = append(views, *roomView(&rooms[i], rooms[i].Participants))
	}
	return views, nil
}

// Get returns one room with its active participants.
func (s *RoomService) Get(roomID string) (*model.RoomView, error) {
	room, err := s.store.FindRoom(roomID)
	if err != nil {
		return nil, err
	}
	parts, err := s.store.FindActiveParticipants(roomID)
	if err != nil {
		return nil, err
	}
	return roomView(room, parts), nil
}

// Close marks the room closed (host-only), drops its ephemeral state, and
// disconnects every live session in it.
func (s *RoomService) Close(roomID, requestingUserID string) error {
	if err := s.store.CloseRoom(roomID, requestingUserID); err != nil {
		return err
	}
	s.registry.DropRoom(roomID)
	s.hub.CloseRoom(roomID)
	s.log.Info("room closed",
		zap.String("room_id", roomID),
		zap.String("closed_by", requestingUserID))
	return nil
}

// UpdateParticipant persists the caller's own instrument/readiness over REST
// and broadcasts the resulting snapshot to any live sessions, same as the
// WebSocket events do.
func (s *RoomService) UpdateParticipant(roomID, userID string, req model.UpdateParticipantRequest) (*model.RoomView, error) {
	room, err := s.store.FindRoom(roomID)
	if err != nil {
		return nil, err
	}
	if room.Status == string(model.RoomStatusClosed) {
		return nil, errs.ErrRoomClosed
	}
	now := time.Now()
	err = s.store.UpdateParticipant(roomID, userID, store.ParticipantUpdate{
		Instrument:   req.Instrument,
		Ready:        req.Ready,
		LastActiveAt: &now,
	})
	if err != nil {
		return nil, err
	}
	parts, err := s.store.FindActiveParticipants(roomID)
	if err != nil {
		return nil, err
	}
	s.hub.Broadcast(roomID, model.EventParticipantsUpdate, model.SnapshotPayload{
		Participants: participantViews(parts),
	})
	return roomView(room, parts), nil
}

func roomView(room *model.Room, parts []model.RoomParticipant) *model.RoomView {
	return &model.RoomView{
		ID:              room.ID,
		Name:            room.Name,
		Description:     room.Description,
		MaxParticipants: room.MaxParticipants,
		Status:          model.RoomStatus(room.Status),
		CreatorID:       room.CreatorID,
		Participants:    participantViews(parts),
		CreatedAt:       room.CreatedAt,
		ClosedAt:        room.ClosedAt,
	}
}

func participantViews(parts []model.RoomParticipant) []model.ParticipantView {
	views := make([]model.ParticipantView, 0, len(parts))
	for i := range parts {
		views = append(views, model.ParticipantViewOf(&parts[i]))
	}
	return views
}
