package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/auth"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/errs"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/model"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/service"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/store"
)

// RoomHandler handles REST API for room lifecycle.
type RoomHandler struct {
	svc *service.RoomService
}

// NewRoomHandler creates a room handler.
func NewRoomHandler(svc *service.RoomService) *RoomHandler {
	return &RoomHandler{svc: svc}
}

// CreateRoom godoc
// POST /rooms
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req model.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	userID, username := auth.UserFrom(c)
	room, err := h.svc.Create(store.UserRef{ID: userID, Username: username}, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}
	c.JSON(http.StatusCreated, room)
}

// ListRooms godoc
// GET /rooms
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.svc.ListActive()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rooms"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// GetRoom godoc
// GET /rooms/:id
func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.svc.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, errs.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": errs.ErrRoomNotFound.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get room"})
		return
	}
	c.JSON(http.StatusOK, room)
}

// CloseRoom godoc
// DELETE /rooms/:id
func (h *RoomHandler) CloseRoom(c *gin.Context) {
	userID, _ := auth.UserFrom(c)
	err := h.svc.Close(c.Param("id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": errs.ErrRoomNotFound.Error()})
		case errors.Is(err, errs.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "only the host can close the room"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to close room"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateParticipant godoc
// PATCH /rooms/:id/participant — updates the caller's own row only.
func (h *RoomHandler) UpdateParticipant(c *gin.Context) {
	var req model.UpdateParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	userID, _ := auth.UserFrom(c)
	room, err := h.svc.UpdateParticipant(c.Param("id"), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": errs.ErrRoomNotFound.Error()})
		case errors.Is(err, errs.ErrRoomClosed):
			c.JSON(http.StatusGone, gin.H{"error": errs.ErrRoomClosed.Error()})
		case errors.Is(err, errs.ErrParticipantNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": errs.ErrParticipantNotFound.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update participant"})
		}
		return
	}
	c.JSON(http.StatusOK, room)
}
