package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/errs"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/model"
	"gorm.io/gorm"
)

// GormStore implements MembershipStore on PostgreSQL via GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates the GORM-backed membership store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// CreateRoom persists room + host participant atomically.
func (s *GormStore) CreateRoom(creator UserRef, name, description string, maxParticipants int) (*model.Room, error) {
	now := time.Now()
	room := &model.Room{
		ID:              uuid.New().String(),
		Name:            name,
		Description:     description,
		MaxParticipants: maxParticipants,
		Status:          string(model.RoomStatusActive),
		CreatorID:       creator.ID,
	}
	host := &model.RoomParticipant{
		ID:           uuid.New().String(),
		RoomID:       room.ID,
		UserID:       creator.ID,
		Username:     creator.Username,
		Role:         model.RoleHost,
		Status:       model.ParticipantActive,
		LastActiveAt: now,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		return tx.Create(host).Error
	})
	if err != nil {
		return nil, err
	}
	room.Participants = []model.RoomParticipant{*host}
	return room, nil
}

// FindRoom returns the room or errs.ErrRoomNotFound.
func (s *GormStore) FindRoom(roomID string) (*model.Room, error) {
	var ent model.Room
	if err := s.db.Where("id = ?", roomID).First(&ent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrRoomNotFound
		}
		return nil, err
	}
	return &ent, nil
}

// FindActiveRooms returns active rooms with active participants preloaded.
func (s *GormStore) FindActiveRooms() ([]model.Room, error) {
	var rooms []model.Room
	err := s.db.
		Preload("Participants", "status = ?", model.ParticipantActive).
		Where("status = ?", string(model.RoomStatusActive)).
		Order("created_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// FindActiveParticipants returns the active participants of a room.
func (s *GormStore) FindActiveParticipants(roomID string) ([]model.RoomParticipant, error) {
	var parts []model.RoomParticipant
	err := s.db.
		Where("room_id = ? AND status = ?", roomID, model.ParticipantActive).
		Order("created_at ASC").
		Find(&parts).Error
	if err != nil {
		return nil, err
	}
	return parts, nil
}

// FindParticipant returns the (room, user) row regardless of status.
func (s *GormStore) FindParticipant(roomID, userID string) (*model.RoomParticipant, error) {
	var ent model.RoomParticipant
	err := s.db.Where("room_id = ? AND user_id = ?", roomID, userID).First(&ent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrParticipantNotFound
		}
		return nil, err
	}
	return &ent, nil
}

// CreateOrReactivateParticipant creates or reactivates the (room, user) row.
// Readiness is always reset to false on (re)admission.
func (s *GormStore) CreateOrReactivateParticipant(roomID string, user UserRef) (*model.RoomParticipant, error) {
	now := time.Now()
	var ent model.RoomParticipant
	err := s.db.Where("room_id = ? AND user_id = ?", roomID, user.ID).First(&ent).Error
	if err == nil {
		updates := map[string]interface{}{
			"status":         model.ParticipantActive,
			"ready":          false,
			"last_active_at": now,
		}
		if user.Username != "" {
			updates["username"] = user.Username
		}
		if err := s.db.Model(&ent).Updates(updates).Error; err != nil {
			return nil, err
		}
		ent.Status = model.ParticipantActive
		ent.Ready = false
		ent.LastActiveAt = now
		return &ent, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	ent = model.RoomParticipant{
		ID:           uuid.New().String(),
		RoomID:       roomID,
		UserID:       user.ID,
		Username:     user.Username,
		Role:         model.RoleParticipant,
		Status:       model.ParticipantActive,
		LastActiveAt: now,
	}
	if err := s.db.Create(&ent).Error; err != nil {
		return nil, err
	}
	return &ent, nil
}

// UpdateParticipant applies the non-nil fields to the (room, user) row.
func (s *GormStore) UpdateParticipant(roomID, userID string, fields ParticipantUpdate) error {
	updates := map[string]interface{}{}
	if fields.Instrument != nil {
		updates["instrument"] = *fields.Instrument
	}
	if fields.Ready != nil {
		updates["ready"] = *fields.Ready
	}
	if fields.Status != nil {
		updates["status"] = *fields.Status
	}
	if fields.LastActiveAt != nil {
		updates["last_active_at"] = *fields.LastActiveAt
	}
	if len(updates) == 0 {
		return nil
	}
	res := s.db.Model(&model.RoomParticipant{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrParticipantNotFound
	}
	return nil
}

// CloseRoom marks the room closed and all its participants inactive, host-only.
func (s *GormStore) CloseRoom(roomID, requestingUserID string) error {
	var room model.Room
	if err := s.db.Where("id = ?", roomID).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.ErrRoomNotFound
		}
		return err
	}
	if room.CreatorID != requestingUserID {
		return errs.ErrForbidden
	}
	if room.Status == string(model.RoomStatusClosed) {
		return nil
	}
	now := time.Now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&room).Updates(map[string]interface{}{
			"status":    string(model.RoomStatusClosed),
			"closed_at": now,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&model.RoomParticipant{}).
			Where("room_id = ?", roomID).
			Updates(map[string]interface{}{
				"status": model.ParticipantInactive,
				"ready":  false,
			}).Error
	})
}
