package errs

import "errors"

// Доменные сентинель-ошибки для маппинга в HTTP коды в handlers
// и в error-события на WebSocket соединении.
var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomClosed          = errors.New("room is closed")
	ErrRoomFull            = errors.New("room has maximum participants")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrForbidden           = errors.New("forbidden")
)
