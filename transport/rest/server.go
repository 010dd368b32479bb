package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/service"
)

const shutdownTimeout = 5 * time.Second

type authService interface {
	Verify(token string) (string, error)
}

type Server struct {
	logger *slog.Logger

	auth  authService
	rooms service.RoomService

	publicWSURL string
}

func New(logger *slog.Logger, auth authService, rooms service.RoomService, publicWSURL string) *Server {
	return &Server{
		logger:      logger.With("component", "rest_server"),
		auth:        auth,
		rooms:       rooms,
		publicWSURL: publicWSURL,
	}
}

func (that *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/ping", that.ping).Methods(http.MethodGet)

	games := router.PathPrefix("/api/games").Subrouter()
	games.Use(that.authenticate)
	games.HandleFunc("/create", that.createGame).Methods(http.MethodPost)
	games.HandleFunc("/join", that.joinGame).Methods(http.MethodPost)
	games.HandleFunc("/history", that.history).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)

	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(cors(router))
}

// Start - starts HTTP server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
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
