package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/config"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/publisher"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/room"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/service"
)

const testRoom = "ABC123"

type memoryStore struct {
	mu      sync.Mutex
	matches map[string]*entity.Match
}

func (that *memoryStore) GetByCode(_ context.Context, roomCode string) (*entity.Match, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	match, ok := that.matches[roomCode]
	if !ok {
		return nil, apperror.ErrRoomNotFound
	}

	return match.Clone(), nil
}

type nopRecorder struct{}

func (nopRecorder) RecordMove(string, entity.Move) {}
func (nopRecorder) RecordMatch(*entity.Match)      {}

type gateway struct {
	url      string
	auth     service.AuthService
	registry *room.Registry
}

func newGateway(t *testing.T) *gateway {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := &memoryStore{matches: map[string]*entity.Match{
		testRoom: entity.NewMatch(testRoom, "alice", time.Now()),
	}}
	registry := room.NewRegistry(logger, store, nopRecorder{}, publisher.Noop{}, time.Minute)
	auth := service.NewAuthService("test-secret")

	server := New(logger, auth, registry, config.WebSocket{
		SendBuffer:     16,
		WriteWait:      time.Second,
		PongWait:       10 * time.Second,
		PingPeriod:     5 * time.Second,
		MaxMessageSize: 1024,
	})

	httpServer := httptest.NewServer(server.Router())
	t.Cleanup(func() {
		registry.Close()
		httpServer.Close()
	})

	return &gateway{
		url:      "ws" + strings.TrimPrefix(httpServer.URL, "http"),
		auth:     auth,
		registry: registry,
	}
}

func (that *gateway) token(t *testing.T, playerID string) string {
	t.Helper()

	token, err := that.auth.GenerateToken(playerID)
	require.NoError(t, err)

	return token
}

func (that *gateway) dial(t *testing.T, playerID string) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(that.url+"/ws/game/"+testRoom+"/?token="+that.token(t, playerID), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func read(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))

	return msg
}

func send(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}

func TestServer_Handshake(t *testing.T) {
	gw := newGateway(t)

	t.Run("An invalid token is refused before upgrading", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(gw.url+"/ws/game/"+testRoom+"/?token=garbage", nil)

		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("A missing token is refused", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(gw.url+"/ws/game/"+testRoom+"/", nil)

		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("An unknown room is refused", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(gw.url+"/ws/game/NOPE00/?token="+gw.token(t, "alice"), nil)

		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("A bearer header is accepted", func(t *testing.T) {
		header := http.Header{"Authorization": []string{"Bearer " + gw.token(t, "alice")}}

		conn, _, err := websocket.DefaultDialer.Dial(gw.url+"/ws/game/"+testRoom, header)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })

		msg := read(t, conn)
		assert.Equal(t, "game_state", msg["action"])
	})
}

func TestServer_Game(t *testing.T) {
	gw := newGateway(t)

	// Given: alice is connected to her pending room
	host := gw.dial(t, "alice")
	state := read(t, host)
	assert.Equal(t, "game_state", state["action"])
	assert.Equal(t, "PENDING", state["status"])
	assert.Nil(t, state["current_turn"])

	// When: bob connects
	guest := gw.dial(t, "bob")

	// Then: both are told bob joined and bob gets the started game
	joined := read(t, host)
	assert.Equal(t, "player_joined", joined["action"])
	assert.Equal(t, "bob", joined["player2"])
	assert.Equal(t, "alice", joined["current_turn"])

	assert.Equal(t, "player_joined", read(t, guest)["action"])
	started := read(t, guest)
	assert.Equal(t, "game_state", started["action"])
	assert.Equal(t, "IN_PROGRESS", started["status"])

	t.Run("Malformed messages get requester-scoped errors", func(t *testing.T) {
		send(t, guest, "{not json")
		assert.Equal(t, map[string]any{"action": "error", "message": "Invalid JSON format"}, read(t, guest))

		send(t, guest, `{"action":"jump"}`)
		assert.Equal(t, "unknown action: jump", read(t, guest)["message"])

		send(t, guest, `{"action":"make_move"}`)
		assert.Equal(t, "position is required", read(t, guest)["message"])

		send(t, guest, `{"action":"make_move","position":4.5}`)
		assert.Equal(t, "position must be between 0 and 8: got 4.5", read(t, guest)["message"])
	})

	t.Run("Out of turn moves are rejected for the requester only", func(t *testing.T) {
		send(t, guest, `{"action":"make_move","position":0}`)
		assert.Equal(t, "it's not your turn", read(t, guest)["message"])
	})

	t.Run("Accepted moves reach everybody", func(t *testing.T) {
		send(t, host, `{"action":"make_move","position":4}`)

		for _, conn := range []*websocket.Conn{host, guest} {
			msg := read(t, conn)
			assert.Equal(t, "move_made", msg["action"])
			assert.Equal(t, float64(4), msg["position"])
			assert.Equal(t, "X", msg["symbol"])
			assert.Equal(t, "bob", msg["next_turn"])
			assert.Equal(t, "----X----", msg["board"])
		}
	})

	t.Run("A reconnecting player gets the live snapshot", func(t *testing.T) {
		require.NoError(t, guest.Close())
		assert.Eventually(t, func() bool {
			return gw.registry.Members(testRoom) == 1
		}, 2*time.Second, 10*time.Millisecond)

		again := gw.dial(t, "bob")
		snapshot := read(t, again)

		assert.Equal(t, "game_state", snapshot["action"])
		assert.Equal(t, "----X----", snapshot["board"])
		assert.Equal(t, "bob", snapshot["current_turn"])
		assert.Equal(t, "IN_PROGRESS", snapshot["status"])

		// And: the game finishes normally on the new connection
		for _, step := range []struct {
			conn     *websocket.Conn
			position string
		}{{again, "0"}, {host, "1"}, {again, "3"}, {host, "7"}} {
			send(t, step.conn, `{"action":"make_move","position":`+step.position+`}`)
			_ = read(t, host)
			_ = read(t, again)
		}

		snap, err := gw.registry.Snapshot(context.Background(), testRoom)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusCompleted, snap.Status)
		assert.Equal(t, "alice", snap.Winner)
	})
}

func TestServer_ThirdIdentityObserves(t *testing.T) {
	gw := newGateway(t)

	host := gw.dial(t, "alice")
	_ = read(t, host)
	guest := gw.dial(t, "bob")
	_ = read(t, host)
	_ = read(t, guest)
	_ = read(t, guest)

	// When: carol connects to a full room
	observer := gw.dial(t, "carol")

	// Then: she is told the room is full but stays connected with the snapshot
	assert.Equal(t, "room is full", read(t, observer)["message"])
	assert.Equal(t, "game_state", read(t, observer)["action"])

	// And: she keeps receiving broadcasts
	send(t, host, `{"action":"make_move","position":4}`)
	assert.Equal(t, "move_made", read(t, observer)["action"])

	// And: her moves are rejected
	send(t, observer, `{"action":"make_move","position":0}`)
	assert.Equal(t, "you are not a player in this game", read(t, observer)["message"])
}
