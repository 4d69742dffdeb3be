package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mcdev12/liftcontrol/go/internal/platform/events"
	"github.com/mcdev12/liftcontrol/go/internal/platform/session"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Service is the platform gateway: websocket fan-out to boards, the console
// RPC service and the state endpoints.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	console           *ConsoleService
	eventConsumer     *EventConsumer
	platforms         Platforms
	config            Config
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
	}
}

// NewService creates a new gateway service
func NewService(config Config, platforms Platforms, shuffler session.Shuffler) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig, platforms)

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		stateHandler:      NewStateHandler(platforms),
		console:           NewConsoleService(platforms, shuffler),
		platforms:         platforms,
		config:            config,
	}
}

// EnableReplication makes the gateway fan out events of platforms hosted by
// other instances, read from the JetStream event stream.
func (s *Service) EnableReplication(ctx context.Context, js jetstream.JetStream) error {
	accept := func(platform string) bool {
		_, err := s.platforms.Get(platform)
		return err != nil
	}
	ec, err := NewEventConsumer(ctx, js, s.connectionManager, accept, s.config.JetStreamConfig)
	if err != nil {
		return fmt.Errorf("failed to create event consumer: %w", err)
	}
	s.eventConsumer = ec
	return nil
}

// OnEvent receives local hub events.
func (s *Service) OnEvent(e events.Event) {
	s.connectionManager.OnEvent(e)
}

// Start runs the gateway until ctx is cancelled
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting platform gateway service")

	go s.connectionManager.Start(ctx)

	if s.eventConsumer != nil {
		go func() {
			if err := s.eventConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	<-ctx.Done()

	log.Info().Msg("platform gateway service shutting down")
	return s.Stop()
}

// Stop shuts down the gateway service
func (s *Service) Stop() error {
	// connection manager and consumer stop with the context
	log.Info().Msg("platform gateway service stopped")
	return nil
}

// RegisterRoutes registers the websocket, state and console routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)

	path, handler := NewConsoleServiceHandler(s.console)
	mux.Handle(path, handler)

	log.Info().Str("console_path", path).Msg("platform gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "platform_gateway"
	stats["status"] = "running"
	stats["platforms"] = s.platforms.List()
	stats["replication"] = s.eventConsumer != nil

	if s.eventConsumer != nil {
		info, err := s.eventConsumer.GetConsumerInfo(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("failed to read consumer info")
		} else {
			stats["replication_pending"] = info.NumPending
			stats["replication_ack_pending"] = info.NumAckPending
		}
	}
	return stats
}
