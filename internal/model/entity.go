package model

import "time"

// Room — сущность jam-комнаты (GORM).
type Room struct {
	ID              string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name            string     `gorm:"size:100;not null"`
	Description     string     `gorm:"size:500"`
	MaxParticipants int        `gorm:"not null;default:10"`
	Status          string     `gorm:"size:20;not null;default:active"` // active, closed
	CreatorID       string     `gorm:"type:uuid;not null;index"`
	CreatedAt       time.Time  `gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime"`
	ClosedAt        *time.Time `gorm:"column:closed_at"`

	Participants []RoomParticipant `gorm:"foreignKey:RoomID"`
}

func (Room) TableName() string { return "rooms" }

// RoomParticipant — участник комнаты, одна строка на (room, user) (GORM).
type RoomParticipant struct {
	ID           string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RoomID       string    `gorm:"type:uuid;not null;uniqueIndex:idx_room_user"`
	UserID       string    `gorm:"type:uuid;not null;index;uniqueIndex:idx_room_user"`
	Username     string    `gorm:"size:100;not null"`
	Role         string    `gorm:"size:20;not null;default:participant"` // host, participant
	Status       string    `gorm:"size:20;not null;default:active"`      // active, inactive
	Instrument   string    `gorm:"size:100"`
	Ready        bool      `gorm:"not null;default:false"`
	LastActiveAt time.Time `gorm:"column:last_active_at;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (RoomParticipant) TableName() string { return "room_participants" }
