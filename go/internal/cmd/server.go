package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/mcdev12/liftcontrol/go/internal/config"
	"github.com/mcdev12/liftcontrol/go/internal/platform/events"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const defaultJournalLimit = 100

type journalReader interface {
	Recent(ctx context.Context, platform string, limit int) ([]events.RawEvent, error)
}

func setupServer(cfg *config.Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	// Websocket, state and console routes
	services.Gateway.RegisterRoutes(mux)

	if services.Journal != nil {
		setupJournal(mux, services.Journal)
	}

	setupStats(mux, services)
	setupHealthCheck(mux)

	handler := c.Handler(mux)

	// h2c lets console clients speak the Connect protocol over HTTP/2 without TLS
	return &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

// setupJournal exposes the recent events of a platform:
// GET /api/journal?platform=A&limit=50
func setupJournal(mux *http.ServeMux, journal journalReader) {
	mux.HandleFunc("/api/journal", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		platform := r.URL.Query().Get("platform")
		if platform == "" {
			http.Error(w, "platform parameter is required", http.StatusBadRequest)
			return
		}
		limit := defaultJournalLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		evts, err := journal.Recent(r.Context(), platform, limit)
		if err != nil {
			log.Error().Err(err).Str("platform", platform).Msg("failed to read journal")
			http.Error(w, "failed to read journal", http.StatusInternalServerError)
			return
		}
		if evts == nil {
			evts = []events.RawEvent{}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(evts); err != nil {
			log.Error().Err(err).Msg("failed to encode journal")
		}
	})
}

func setupStats(mux *http.ServeMux, services *Services) {
	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(services.Gateway.GetStats(r.Context())); err != nil {
			log.Error().Err(err).Msg("failed to encode stats")
		}
	})
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
