package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/qsc591/seatboard/go/internal/board"
)

const (
	MessageTypeFrame   = "frame"
	MessageTypeSelect  = "select"
	MessageTypeAdvance = "advance"
	MessageTypeError   = "error"
)

// Message is the envelope for everything sent over /ws/board.
type Message struct {
	Type    string       `json:"type"`
	SeatKey string       `json:"seat_key,omitempty"`
	Data    *board.Frame `json:"data,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// ConnectionManager fans frames out to mirror clients and forwards their
// intents to the board.
type ConnectionManager struct {
	connections map[*Connection]bool
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	control  Controller

	broadcastCh chan []byte
	broadcasts  atomic.Uint64
	dropped     atomic.Uint64
}

// Connection is one mirror client.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
	lastPing    atomic.Int64
}

type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	IntentTimeout   time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		IntentTimeout:   5 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

func NewConnectionManager(config ConnectionConfig, control Controller) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		control:     control,
		broadcastCh: make(chan []byte, 16),
	}
}

// Start processes broadcasts until ctx is done.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case data := <-cm.broadcastCh:
			cm.handleBroadcast(data)
		}
	}
}

// PushFrame queues frame for every connected client. Frames are dropped
// rather than blocking the board when the queue is full.
func (cm *ConnectionManager) PushFrame(frame board.Frame) {
	data, err := encodeFrame(frame)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal frame for broadcast")
		return
	}

	select {
	case cm.broadcastCh <- data:
	default:
		cm.dropped.Add(1)
		log.Warn().Msg("broadcast channel full, dropping frame")
	}
}

func encodeFrame(frame board.Frame) ([]byte, error) {
	return json.Marshal(Message{Type: MessageTypeFrame, Data: &frame})
}

// UpgradeConnection upgrades an HTTP connection and sends the current frame
// straight away.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, 32),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}
	connection.lastPing.Store(time.Now().UnixNano())

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")

	return nil
}

// registerConnection adds conn and queues the current frame. Broadcasts hold
// the read lock, so none can slip in between the two.
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[conn] = true
	if data, err := encodeFrame(cm.control.Frame()); err == nil {
		conn.Send <- data
	}

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.connections[conn]; exists {
		delete(cm.connections, conn)
		close(conn.Send)

		log.Info().
			Str("connection_id", conn.ID).
			Msg("connection unregistered")
	}
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.connections))
	for conn := range cm.connections {
		conns = append(conns, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range conns {
		cm.unregisterConnection(conn)
	}
}

// handleBroadcast sends under the read lock; Send channels are only closed
// under the write lock.
func (cm *ConnectionManager) handleBroadcast(data []byte) {
	var slow []*Connection

	cm.mu.RLock()
	total := len(cm.connections)
	for conn := range cm.connections {
		select {
		case conn.Send <- data:
		default:
			slow = append(slow, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}
	cm.broadcasts.Add(1)

	log.Debug().
		Int("connections", total).
		Msg("frame broadcasted")
}

type ConnectionStats struct {
	TotalConnections int    `json:"total_connections"`
	FramesBroadcast  uint64 `json:"frames_broadcast"`
	FramesDropped    uint64 `json:"frames_dropped"`
}

func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return ConnectionStats{
		TotalConnections: len(cm.connections),
		FramesBroadcast:  cm.broadcasts.Load(),
		FramesDropped:    cm.dropped.Load(),
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
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

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
		c.lastPing.Store(time.Now().UnixNano())
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

// handleClientMessage forwards select and advance intents. The board answers
// with a new frame; only malformed intents get a direct reply.
func (c *Connection) handleClientMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		c.reply(Message{Type: MessageTypeError, Error: "invalid message"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Manager.config.IntentTimeout)
	defer cancel()

	var err error
	switch msg.Type {
	case MessageTypeSelect:
		if msg.SeatKey == "" {
			c.reply(Message{Type: MessageTypeError, Error: "seat_key is required"})
			return
		}
		err = c.Manager.control.Select(ctx, msg.SeatKey)
	case MessageTypeAdvance:
		err = c.Manager.control.Advance(ctx)
	default:
		log.Debug().
			Str("connection_id", c.ID).
			Str("type", msg.Type).
			Msg("unknown client message - ignoring")
		return
	}

	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Str("type", msg.Type).Msg("failed to forward client intent")
		c.reply(Message{Type: MessageTypeError, Error: err.Error()})
	}
}

func (c *Connection) reply(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	c.Manager.mu.RLock()
	defer c.Manager.mu.RUnlock()
	if !c.Manager.connections[c] {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}
