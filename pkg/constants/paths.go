package constants

// Пути health, ready и jam WebSocket (остальные API — через handler).
const (
	PathHealth = "/health"
	PathReady  = "/ready"
	PathJamWS  = "/ws/jam/:room_id/:user_id"
)
