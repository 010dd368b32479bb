package publisher

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/room"
)

// NATSPublisher mirrors room broadcasts to <prefix>.<room_code> subjects.
type NATSPublisher struct {
	logger *slog.Logger
	conn   *nats.Conn
	prefix string
}

func NewNATSPublisher(logger *slog.Logger, url, subjectPrefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(
		url,
		nats.Name("tictactoe-rooms"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSPublisher{
		logger: logger.With("component", "nats_publisher"),
		conn:   conn,
		prefix: subjectPrefix,
	}, nil
}

func (that *NATSPublisher) Subject(roomCode string) string {
	return that.prefix + "." + roomCode
}

// Publish - never fails the caller; errors are logged.
func (that *NATSPublisher) Publish(roomCode string, event room.Event) {
	log := that.logger.With("method", "Publish", "room_code", roomCode, "action", event.Name())

	data, err := json.Marshal(event)
	if err != nil {
		log.Error("failed to marshal event", "error", err)
		return
	}

	if err = that.conn.Publish(that.Subject(roomCode), data); err != nil {
		log.Error("failed to publish event", "error", err)
	}
}

// Close - flushes pending messages and closes the connection.
func (that *NATSPublisher) Close() error {
	if err := that.conn.Drain(); err != nil {
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}

	return nil
}

// Noop discards events. Used when no NATS url is configured.
type Noop struct{}

func (Noop) Publish(string, room.Event) {}

func (Noop) Close() error { return nil }
