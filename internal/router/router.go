package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/auth"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/internal/handler"
	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/pkg/constants"
)

// New builds the HTTP router.
func New(
	roomHandler *handler.RoomHandler,
	jamWS *handler.JamWSHandler,
	health *handler.HealthHandler,
	verifier *auth.TokenVerifier,
) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET(constants.PathHealth, health.Health)
	r.GET(constants.PathReady, health.Ready)

	// REST room lifecycle, bearer-token guarded
	rooms := r.Group("/rooms", auth.Middleware(verifier))
	{
		rooms.POST("", roomHandler.CreateRoom)
		rooms.GET("", roomHandler.ListRooms)
		rooms.GET("/:id", roomHandler.GetRoom)
		rooms.DELETE("/:id", roomHandler.CloseRoom)
		rooms.PATCH("/:id/participant", roomHandler.UpdateParticipant)
	}

	// WebSocket: /ws/jam/:room_id/:user_id — token checked in the handler
	// because WS clients often pass it as a query parameter.
	r.GET(constants.PathJamWS, jamWS.ServeWS)

	return r
}
