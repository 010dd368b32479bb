package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/config"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/room"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/service"
)

const shutdownTimeout = 5 * time.Second

type authService interface {
	Verify(token string) (string, error)
}

type roomRegistry interface {
	Lookup(ctx context.Context, roomCode string) error
	Attach(ctx context.Context, roomCode string, member room.Member) (room.AttachResult, error)
	SubmitMove(ctx context.Context, roomCode string, member room.Member, position int) error
	Leave(roomCode string, member room.Member)
}

// Server is the connection gateway: it authenticates sockets and bridges them to rooms.
type Server struct {
	logger   *slog.Logger
	auth     authService
	rooms    roomRegistry
	settings config.WebSocket
	upgrader websocket.Upgrader
}

func New(logger *slog.Logger, auth authService, rooms roomRegistry, settings config.WebSocket) *Server {
	return &Server{
		logger:   logger.With("component", "websocket_server"),
		auth:     auth,
		rooms:    rooms,
		settings: settings,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
	}
}

func (that *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/ws/game/{room_code}/", that.serveGame)
	router.HandleFunc("/ws/game/{room_code}", that.serveGame)

	return router
}

// Start - starts WebSocket server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// serveGame - authenticates and resolves the room before upgrading; then runs the connection.
func (that *Server) serveGame(w http.ResponseWriter, r *http.Request) {
	roomCode := mux.Vars(r)["room_code"]
	log := that.logger.With("method", "serveGame", "room_code", roomCode)

	playerID, err := that.authenticate(r)
	if err != nil {
		log.Warn("rejected connection", "error", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err = that.rooms.Lookup(r.Context(), roomCode); err != nil {
		if errors.Is(err, apperror.ErrRoomNotFound) {
			http.Error(w, "Room not found", http.StatusNotFound)
			return
		}

		log.Error("failed to resolve room", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	connection := newConnection(that.logger, uuid.NewString(), playerID, roomCode, conn, that.settings)
	go connection.writePump()

	that.handleConnection(r.Context(), connection)
}

func (that *Server) authenticate(r *http.Request) (string, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		bearer, err := service.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			return "", err
		}
		token = bearer
	}

	return that.auth.Verify(token)
}

// handleConnection attaches the connection and serves its messages until it closes.
// Each cleanup step is deferred separately so all of them run.
func (that *Server) handleConnection(ctx context.Context, connection *Connection) {
	log := that.logger.With("method", "handleConnection", "room_code", connection.roomCode, "conn_id", connection.id)

	defer connection.Close()
	defer that.rooms.Leave(connection.roomCode, connection)

	result, err := that.rooms.Attach(ctx, connection.roomCode, connection)
	if err != nil && apperror.KindOf(err) != apperror.KindMembership {
		log.Error("failed to attach connection", "error", err)
		return
	}

	log.Info("connection attached", "player_id", connection.playerID, "result", result.String())

	connection.readLoop(func(data []byte) {
		that.handleMessage(ctx, connection, data)
	})

	log.Info("connection closed")
}

func (that *Server) handleMessage(ctx context.Context, connection *Connection, data []byte) {
	log := that.logger.With("method", "handleMessage", "room_code", connection.roomCode, "conn_id", connection.id)

	move, err := ParseMessage(data)
	if err != nil {
		log.Debug("invalid message", "error", err)

		if sendErr := connection.Send(room.NewError(err)); sendErr != nil {
			log.Warn("failed to send error", "error", sendErr)
		}

		return
	}

	// rejections were already sent to this connection by the room
	if err = that.rooms.SubmitMove(ctx, connection.roomCode, connection, move.Position); err != nil && apperror.IsFatal(err) {
		log.Warn("closing connection", "error", err)
		connection.Close()
	}
}
