package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for platform connections
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
	}
}

// HandlePlatformConnection handles GET /ws/platform?platform=A&role=board
func (h *WebSocketHandler) HandlePlatformConnection(w http.ResponseWriter, r *http.Request) {
	platform := r.URL.Query().Get("platform")
	if platform == "" {
		http.Error(w, "platform is required", http.StatusBadRequest)
		return
	}

	role := Role(r.URL.Query().Get("role"))
	switch role {
	case "":
		role = RoleBoard
	case RoleBoard, RoleConsole:
	default:
		http.Error(w, "invalid role", http.StatusBadRequest)
		return
	}

	// the upgrader has already written the HTTP error on failure
	if err := h.connectionManager.UpgradeConnection(w, r, platform, role); err != nil {
		log.Error().
			Err(err).
			Str("platform", platform).
			Str("role", string(role)).
			Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	stats := h.connectionManager.GetConnectionStats()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/platform", h.HandlePlatformConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
