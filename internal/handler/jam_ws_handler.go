package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/auth"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/errs"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/model"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/service"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/store"
	"go.uber.org/zap"
)

// JamWSHandler is the connection gatekeeper: it authenticates the handshake,
// resolves room and participant, and runs the connection's event loop.
type JamWSHandler struct {
	hub      *service.JamHub
	coord    *service.RoomCoordinator
	store    store.MembershipStore
	verifier *auth.TokenVerifier
	logger   *zap.Logger
}

// NewJamWSHandler creates the jam WebSocket handler.
func NewJamWSHandler(hub *service.JamHub, coord *service.RoomCoordinator, st store.MembershipStore, verifier *auth.TokenVerifier, logger *zap.Logger) *JamWSHandler {
	return &JamWSHandler{hub: hub, coord: coord, store: st, verifier: verifier, logger: logger}
}

// ServeWS admits a connection to a room's jam channel.
// Path: /ws/jam/:room_id/:user_id, bearer token in Authorization header or
// ?token=. All checks run before the upgrade, so a rejected handshake is a
// plain HTTP error with a reason and the connection never joins the room.
func (h *JamWSHandler) ServeWS(c *gin.Context) {
	roomID := c.Param("room_id")
	userID := c.Param("user_id")
	if roomID == "" || userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_id and user_id required"})
		return
	}

	claims, err := h.verifier.Verify(auth.BearerToken(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
		return
	}
	if claims.Subject != userID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token does not match user"})
		return
	}

	room, err := h.store.FindRoom(roomID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errs.ErrRoomNotFound.Error()})
		return
	}
	if room.Status == string(model.RoomStatusClosed) {
		c.JSON(http.StatusGone, gin.H{"error": errs.ErrRoomClosed.Error()})
		return
	}

	// Capacity counts active rows; a reconnecting user already holds one.
	parts, err := h.store.FindActiveParticipants(roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load participants"})
		return
	}
	member := false
	for _, p := range parts {
		if p.UserID == userID {
			member = true
			break
		}
	}
	if !member && len(parts) >= room.MaxParticipants {
		c.JSON(http.StatusConflict, gin.H{"error": errs.ErrRoomFull.Error()})
		return
	}

	participant, err := h.store.CreateOrReactivateParticipant(roomID, store.UserRef{
		ID:       userID,
		Username: claims.Username,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join room"})
		return
	}

	conn, err := h.hub.Upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sess, cleanup := h.hub.Register(roomID, model.ParticipantViewOf(participant), conn)
	// LIFO: the session leaves the broadcast group first, then the
	// disconnect snapshot goes to the remaining sessions.
	defer h.coord.Disconnect(sess)
	defer cleanup()

	if err := h.coord.Admit(sess); err != nil {
		h.logger.Error("admit failed",
			zap.String("room_id", roomID),
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}

	go h.writePump(sess)
	h.readPump(sess)
}

func (h *JamWSHandler) readPump(s *service.Session) {
	defer func() {
		_ = s.Conn.Close()
	}()
	for {
		mt, data, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("read error", zap.Error(err))
			}
			break
		}
		if mt != websocket.TextMessage {
			continue
		}
		h.handleMessage(s, data)
	}
}

// handleMessage isolates one event's processing: a panic is confined to this
// frame and the connection stays usable.
func (h *JamWSHandler) handleMessage(s *service.Session, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic in event handler",
				zap.String("room_id", s.RoomID),
				zap.String("user_id", s.UserID),
				zap.Any("panic", r))
		}
	}()
	h.coord.HandleMessage(s, data)
}

func (h *JamWSHandler) writePump(s *service.Session) {
	defer func() {
		_ = s.Conn.Close()
	}()
	for data := range s.Send {
		if err := s.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			break
		}
	}
}
