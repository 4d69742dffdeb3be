package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/liftcontrol/go/internal/platform/events"
	"github.com/mcdev12/liftcontrol/go/internal/platform/session"
	"github.com/rs/zerolog/log"
)

// Role is what a websocket client is allowed to do
type Role string

const (
	// RoleBoard only receives events (scoreboard, attempt board, clock display)
	RoleBoard Role = "board"
	// RoleConsole may also send commands (referee box, timekeeper, announcer)
	RoleConsole Role = "console"
)

// Platforms looks up live platform sessions
type Platforms interface {
	Get(platform string) (*session.Session, error)
	List() []string
}

// ConnectionManager manages WebSocket connections per platform
type ConnectionManager struct {
	platformConnections map[string]map[*Connection]bool
	mu                  sync.RWMutex

	upgrader  websocket.Upgrader
	config    ConnectionConfig
	platforms Platforms

	broadcastCh chan BroadcastMessage
}

// Connection represents a WebSocket connection to a board or console
type Connection struct {
	ID       string
	Role     Role
	Platform string
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

	ConnectedAt time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage is a frame queued for every connection of a platform
type BroadcastMessage struct {
	Platform string
	Message  *Message
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, platforms Platforms) *ConnectionManager {
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = 256
	}
	return &ConnectionManager{
		platformConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		platforms:   platforms,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start begins processing broadcast messages
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// OnEvent forwards a hub event to the platform's connections.
func (cm *ConnectionManager) OnEvent(e events.Event) {
	msg, err := MessageFromEvent(e)
	if err != nil {
		log.Error().Err(err).Str("platform", e.Platform).Msg("failed to convert event for broadcast")
		return
	}
	cm.BroadcastToPlatform(e.Platform, msg)
}

// UpgradeConnection upgrades an HTTP connection to WebSocket
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, platform string, role Role) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Role:        role,
		Platform:    platform,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		ConnectedAt: time.Now(),
		done:        make(chan struct{}),
	}

	cm.registerConnection(connection)
	cm.sendSnapshot(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("role", string(role)).
		Str("platform", platform).
		Msg("WebSocket connection established")

	return nil
}

// sendSnapshot queues the current platform state so a new board does not
// wait for the next event to render.
func (cm *ConnectionManager) sendSnapshot(conn *Connection) {
	s, err := cm.platforms.Get(conn.Platform)
	if err != nil {
		log.Debug().Str("platform", conn.Platform).Msg("no local session, skipping snapshot")
		return
	}
	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		log.Error().Err(err).Str("platform", conn.Platform).Msg("failed to marshal snapshot")
		return
	}
	conn.send(&Message{
		Type:      MessageTypeSnapshot,
		Platform:  conn.Platform,
		Timestamp: time.Now(),
		Data:      data,
	})
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.platformConnections[conn.Platform] == nil {
		cm.platformConnections[conn.Platform] = make(map[*Connection]bool)
	}
	cm.platformConnections[conn.Platform][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("platform", conn.Platform).
		Int("total_connections", len(cm.platformConnections[conn.Platform])).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if connections, exists := cm.platformConnections[conn.Platform]; exists {
		if _, exists := connections[conn]; exists {
			delete(connections, conn)
			conn.close()

			if len(connections) == 0 {
				delete(cm.platformConnections, conn.Platform)
			}

			log.Info().
				Str("connection_id", conn.ID).
				Str("role", string(conn.Role)).
				Str("platform", conn.Platform).
				Msg("connection unregistered")
		}
	}
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for platform, connections := range cm.platformConnections {
		for conn := range connections {
			conn.close()
		}
		delete(cm.platformConnections, platform)
	}
}

// BroadcastToPlatform sends a frame to all connections of a platform
func (cm *ConnectionManager) BroadcastToPlatform(platform string, msg *Message) {
	select {
	case cm.broadcastCh <- BroadcastMessage{Platform: platform, Message: msg}:
	default:
		log.Warn().Str("platform", platform).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	connections, exists := cm.platformConnections[message.Platform]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	targetConnections := make([]*Connection, 0, len(connections))
	for conn := range connections {
		targetConnections = append(targetConnections, conn)
	}
	cm.mu.RUnlock()

	data, err := json.Marshal(message.Message)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal message for broadcast")
		return
	}

	for _, conn := range targetConnections {
		select {
		case conn.Send <- data:
		case <-conn.done:
		default:
			log.Warn().
				Str("connection_id", conn.ID).
				Str("platform", conn.Platform).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
		}
	}

	log.Debug().
		Str("kind", string(message.Message.Kind)).
		Str("platform", message.Platform).
		Int("connections", len(targetConnections)).
		Msg("event broadcasted")
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	totalConnections := 0
	platformCounts := make(map[string]int)

	for platform, connections := range cm.platformConnections {
		count := len(connections)
		totalConnections += count
		platformCounts[platform] = count
	}

	return map[string]interface{}{
		"total_connections":    totalConnections,
		"active_platforms":     len(cm.platformConnections),
		"platform_connections": platformCounts,
	}
}

func (c *Connection) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// send queues a frame for this connection only, dropping it if the buffer is full.
func (c *Connection) send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal message")
		return
	}
	select {
	case c.Send <- data:
	case <-c.done:
	default:
		log.Warn().Str("connection_id", c.ID).Msg("connection send buffer full, dropping message")
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage queues a console command on the platform session. The
// click is acknowledged as soon as the command is queued; a failing command
// is reported back to this connection only.
func (c *Connection) handleClientMessage(message []byte) {
	if c.Role != RoleConsole {
		log.Debug().
			Str("connection_id", c.ID).
			RawJSON("message", message).
			Msg("ignoring message from board connection")
		return
	}

	var cc ClientCommand
	if err := json.Unmarshal(message, &cc); err != nil {
		c.sendError(fmt.Errorf("malformed command: %w", err))
		return
	}

	cmd, err := commandFor(cc)
	if err != nil {
		c.sendError(err)
		return
	}

	s, err := c.Manager.platforms.Get(c.Platform)
	if err != nil {
		c.sendError(err)
		return
	}

	res, err := s.Submit(cc.Command, cmd)
	if err != nil {
		c.sendError(err)
		return
	}

	go func() {
		select {
		case err := <-res:
			if err != nil {
				c.sendError(fmt.Errorf("%s: %w", cc.Command, err))
			}
		case <-c.done:
		}
	}()
}

func (c *Connection) sendError(err error) {
	log.Warn().Err(err).Str("connection_id", c.ID).Str("platform", c.Platform).Msg("client command rejected")
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	c.send(&Message{
		Type:      MessageTypeError,
		Platform:  c.Platform,
		Timestamp: time.Now(),
		Data:      data,
	})
}
