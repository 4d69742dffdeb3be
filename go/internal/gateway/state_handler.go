package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mcdev12/liftcontrol/go/internal/platform/registry"
	"github.com/mcdev12/liftcontrol/go/internal/platform/session"
	"github.com/rs/zerolog/log"
)

// PlatformSummary is one row of GET /api/platforms
type PlatformSummary struct {
	Platform    string `json:"platform"`
	Group       string `json:"group"`
	Master      bool   `json:"master"`
	Current     string `json:"current,omitempty"`
	ClockState  string `json:"clock_state"`
	RemainingMs int64  `json:"remaining_ms"`
}

// StateHandler handles HTTP requests for platform state
type StateHandler struct {
	platforms Platforms
}

// NewStateHandler creates a new state handler
func NewStateHandler(platforms Platforms) *StateHandler {
	return &StateHandler{
		platforms: platforms,
	}
}

// HandleGetPlatformState handles GET /api/platforms/{platform}/state
func (h *StateHandler) HandleGetPlatformState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	platform := extractPlatformFromPath(r.URL.Path)
	if platform == "" {
		http.Error(w, "Platform is required", http.StatusBadRequest)
		return
	}

	s, err := h.platforms.Get(platform)
	if err != nil {
		if errors.Is(err, registry.ErrPlatformNotFound) {
			http.Error(w, "Platform not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("platform", platform).Msg("failed to get platform state")
		http.Error(w, "Failed to get platform state", http.StatusInternalServerError)
		return
	}

	writeJSON(w, s.Snapshot())
}

// HandleListPlatforms handles GET /api/platforms
func (h *StateHandler) HandleListPlatforms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	summaries := make([]PlatformSummary, 0)
	for _, name := range h.platforms.List() {
		s, err := h.platforms.Get(name)
		if err != nil {
			// removed between List and Get
			continue
		}
		summaries = append(summaries, summarizePlatform(s))
	}

	writeJSON(w, summaries)
}

func summarizePlatform(s *session.Session) PlatformSummary {
	snap := s.Snapshot()
	sum := PlatformSummary{
		Platform:    snap.Platform,
		Group:       snap.Group,
		Master:      s.Config().Master,
		ClockState:  snap.Clock.State,
		RemainingMs: snap.Clock.RemainingMs,
	}
	if snap.Current != nil {
		sum.Current = snap.Current.Name
	}
	return sum
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/platforms", h.HandleListPlatforms)

	mux.HandleFunc("/api/platforms/", func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Str("path", r.URL.Path).Msg("state handler received request")

		if strings.HasSuffix(r.URL.Path, "/state") {
			h.HandleGetPlatformState(w, r)
		} else {
			http.NotFound(w, r)
		}
	})
}

// extractPlatformFromPath extracts the platform from /api/platforms/{platform}/state
func extractPlatformFromPath(path string) string {
	const prefix = "/api/platforms/"
	const suffix = "/state"

	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return ""
	}
	if len(path) <= len(prefix)+len(suffix) {
		return ""
	}
	return path[len(prefix) : len(path)-len(suffix)]
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
