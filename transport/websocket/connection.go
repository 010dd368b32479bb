package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/config"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/room"
)

// Connection is one authenticated WebSocket client attached to a room.
// Outbound events go through a buffered queue drained by writePump.
type Connection struct {
	id       string
	playerID string
	roomCode string

	conn     *websocket.Conn
	settings config.WebSocket
	logger   *slog.Logger

	mu     sync.RWMutex
	closed bool
	send   chan []byte
}

func newConnection(logger *slog.Logger, id, playerID, roomCode string, conn *websocket.Conn, settings config.WebSocket) *Connection {
	return &Connection{
		id:       id,
		playerID: playerID,
		roomCode: roomCode,
		conn:     conn,
		settings: settings,
		logger:   logger.With("conn_id", id, "player_id", playerID, "room_code", roomCode),
		send:     make(chan []byte, settings.SendBuffer),
	}
}

func (that *Connection) ID() string {
	return that.id
}

func (that *Connection) PlayerID() string {
	return that.playerID
}

// Send - queues event without blocking. Fails when the connection is closed or its queue is full.
func (that *Connection) Send(event room.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Name(), err)
	}

	that.mu.RLock()
	defer that.mu.RUnlock()

	if that.closed {
		return apperror.ErrConnectionClosed
	}

	select {
	case that.send <- data:
		return nil
	default:
		return apperror.ErrSendBufferFull
	}
}

// Close - stops the write pump, which sends a close frame and closes the socket.
func (that *Connection) Close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return
	}

	that.closed = true
	close(that.send)
}

// readLoop calls handle for every text frame until the socket fails or the peer goes silent.
func (that *Connection) readLoop(handle func(data []byte)) {
	log := that.logger.With("method", "readLoop")

	that.conn.SetReadLimit(that.settings.MaxMessageSize)

	if err := that.conn.SetReadDeadline(time.Now().Add(that.settings.PongWait)); err != nil {
		log.Error("failed to set read deadline", "error", err)
	}

	that.conn.SetPongHandler(func(string) error {
		return that.conn.SetReadDeadline(time.Now().Add(that.settings.PongWait))
	})

	for {
		messageType, data, err := that.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn("unexpected close", "error", err)
			}

			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		handle(data)
	}
}

// writePump is the only writer of the socket.
func (that *Connection) writePump() {
	log := that.logger.With("method", "writePump")

	ticker := time.NewTicker(that.settings.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = that.conn.Close()
	}()

	for {
		select {
		case data, ok := <-that.send:
			if err := that.conn.SetWriteDeadline(time.Now().Add(that.settings.WriteWait)); err != nil {
				log.Error("failed to set write deadline", "error", err)
			}

			if !ok {
				_ = that.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := that.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn("failed to write message", "error", err)
				return
			}
		case <-ticker.C:
			if err := that.conn.SetWriteDeadline(time.Now().Add(that.settings.WriteWait)); err != nil {
				log.Error("failed to set write deadline", "error", err)
			}

			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
