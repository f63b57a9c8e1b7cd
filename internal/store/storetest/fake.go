// Package storetest provides an in-memory MembershipStore for tests, so the
// coordinator and handlers can be exercised without a database.
package storetest

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/errs"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/model"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/store"
)

// Fake is an in-memory MembershipStore. FailWrites makes every write return
// an error, for persistence-failure paths.
type Fake struct {
	mu           sync.Mutex
	rooms        map[string]*model.Room
	participants map[string]map[string]*model.RoomParticipant // roomID -> userID -> row
	FailWrites   bool
}

// New creates an empty fake store.
func New() *Fake {
	return &Fake{
		rooms:        make(map[string]*model.Room),
		participants: make(map[string]map[string]*model.RoomParticipant),
	}
}

var _ store.MembershipStore = (*Fake)(nil)

var errWriteFailed = errors.New("storetest: write failed")

func (f *Fake) CreateRoom(creator store.UserRef, name, description string, maxParticipants int) (*model.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrites {
		return nil, errWriteFailed
	}
	room := &model.Room{
		ID:              uuid.New().String(),
		Name:            name,
		Description:     description,
		MaxParticipants: maxParticipants,
		Status:          string(model.RoomStatusActive),
		CreatorID:       creator.ID,
		CreatedAt:       time.Now(),
	}
	host := &model.RoomParticipant{
		ID:           uuid.New().String(),
		RoomID:       room.ID,
		UserID:       creator.ID,
		Username:     creator.Username,
		Role:         model.RoleHost,
		Status:       model.ParticipantActive,
		LastActiveAt: time.Now(),
	}
	f.rooms[room.ID] = room
	f.participants[room.ID] = map[string]*model.RoomParticipant{creator.ID: host}
	room.Participants = []model.RoomParticipant{*host}
	return room, nil
}

func (f *Fake) FindRoom(roomID string) (*model.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	if !ok {
		return nil, errs.ErrRoomNotFound
	}
	cp := *room
	return &cp, nil
}

func (f *Fake) FindActiveRooms() ([]model.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Room
	for _, room := range f.rooms {
		if room.Status != string(model.RoomStatusActive) {
			continue
		}
		cp := *room
		cp.Participants = f.activeLocked(room.ID)
		out = append(out, cp)
	}
	return out, nil
}

func (f *Fake) FindActiveParticipants(roomID string) ([]model.RoomParticipant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeLocked(roomID), nil
}

func (f *Fake) activeLocked(roomID string) []model.RoomParticipant {
	var out []model.RoomParticipant
	for _, p := range f.participants[roomID] {
		if p.Status == model.ParticipantActive {
			out = append(out, *p)
		}
	}
	return out
}

func (f *Fake) FindParticipant(roomID, userID string) (*model.RoomParticipant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[roomID][userID]
	if !ok {
		return nil, errs.ErrParticipantNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *Fake) CreateOrReactivateParticipant(roomID string, user store.UserRef) (*model.RoomParticipant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrites {
		return nil, errWriteFailed
	}
	if _, ok := f.rooms[roomID]; !ok {
		return nil, errs.ErrRoomNotFound
	}
	if f.participants[roomID] == nil {
		f.participants[roomID] = make(map[string]*model.RoomParticipant)
	}
	now := time.Now()
	if p, ok := f.participants[roomID][user.ID]; ok {
		p.Status = model.ParticipantActive
		p.Ready = false
		p.LastActiveAt = now
		if user.Username != "" {
			p.Username = user.Username
		}
		cp := *p
		return &cp, nil
	}
	p := &model.RoomParticipant{
		ID:           uuid.New().String(),
		RoomID:       roomID,
		UserID:       user.ID,
		Username:     user.Username,
		Role:         model.RoleParticipant,
		Status:       model.ParticipantActive,
		LastActiveAt: now,
	}
	f.participants[roomID][user.ID] = p
	cp := *p
	return &cp, nil
}

func (f *Fake) UpdateParticipant(roomID, userID string, fields store.ParticipantUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrites {
		return errWriteFailed
	}
	p, ok := f.participants[roomID][userID]
	if !ok {
		return errs.ErrParticipantNotFound
	}
	if fields.Instrument != nil {
		p.Instrument = *fields.Instrument
	}
	if fields.Ready != nil {
		p.Ready = *fields.Ready
	}
	if fields.Status != nil {
		p.Status = *fields.Status
	}
	if fields.LastActiveAt != nil {
		p.LastActiveAt = *fields.LastActiveAt
	}
	return nil
}

func (f *Fake) CloseRoom(roomID, requestingUserID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrites {
		return errWriteFailed
	}
	room, ok := f.rooms[roomID]
	if !ok {
		return errs.ErrRoomNotFound
	}
	if room.CreatorID != requestingUserID {
		return errs.ErrForbidden
	}
	now := time.Now()
	room.Status = string(model.RoomStatusClosed)
	room.ClosedAt = &now
	for _, p := range f.participants[roomID] {
		p.Status = model.ParticipantInactive
		p.Ready = false
	}
	return nil
}
